package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"
	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_user <email> <password> [name]")
		os.Exit(2)
	}
	email := os.Args[1]
	password := os.Args[2]
	name := "Admin"
	if len(os.Args) > 3 {
		name = os.Args[3]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := store.Open(cfg.DatabaseDSN, false)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			log.Printf("migration warning: %v", err)
		}
	}

	ctx := context.Background()
	users := store.NewUsers(db)
	if existing, err := users.ByEmail(ctx, email); err == nil {
		fmt.Printf("user %s already exists (id=%s)\n", existing.Email, existing.ID)
		os.Exit(0)
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		log.Fatalf("lookup failed: %v", err)
	}

	user, err := users.Create(ctx, email, name, password)
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%s\n", user.Email, user.ID)
}
