package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"
)

func main() {
	email := flag.String("email", "", "email of the admin to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *email == "" || *password == "" {
		log.Fatal("--email and --password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := store.Open(cfg.DatabaseDSN, false)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := store.NewUsers(db).SetPassword(context.Background(), *email, *password); err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	fmt.Printf("Password reset for user %s\n", *email)
}
