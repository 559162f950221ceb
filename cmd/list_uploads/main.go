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
	limit := flag.Int("limit", 20, "number of uploads to show")
	unused := flag.Bool("unused", false, "only show uploads no pick or site image points at")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := store.Open(cfg.DatabaseDSN, false)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	ctx := context.Background()
	repo := store.NewUploads(db)
	list, err := repo.List(ctx, *limit)
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	for _, u := range list {
		used, err := repo.Referenced(ctx, u.Path)
		if err != nil {
			log.Fatalf("references for %s: %v", u.Path, err)
		}
		if *unused && used {
			continue
		}
		fmt.Printf("id=%d path=%s original=%s type=%s size=%d backend=%s used=%t created=%s\n",
			u.ID, u.Path, u.OriginalName, u.ContentType, u.Size, u.Backend, used, u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
}
