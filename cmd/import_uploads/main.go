package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"
	"github.com/MichaelFlanagan/SystemFifty/pkg/uploads"
)

// import_uploads records upload rows for files already present in the local
// upload directory, e.g. files written before the uploads table existed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	dir := flag.String("dir", cfg.Upload.BaseDir, "local upload directory to scan")
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	flag.Parse()

	db, err := store.Open(cfg.DatabaseDSN, false)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	ctx := context.Background()
	repo := store.NewUploads(db)
	local := uploads.NewLocal(*dir)

	names, err := local.Names()
	if err != nil {
		log.Fatalf("scan %s: %v", *dir, err)
	}
	var created int
	for _, name := range names {
		if !uploads.ValidName(name) {
			continue
		}
		p := uploads.PathFor(name)
		exists, err := repo.Has(ctx, p)
		if err != nil {
			log.Fatalf("lookup %s: %v", p, err)
		}
		if exists {
			fmt.Printf("EXISTS: %s\n", p)
			continue
		}
		rc, info, err := local.Open(ctx, name)
		if err != nil {
			log.Printf("open %s: %v", name, err)
			continue
		}
		_ = rc.Close()
		if *dry {
			fmt.Printf("DRY: would record %s (%d bytes, %s)\n", p, info.Size, info.ContentType)
			continue
		}
		rec := &models.Upload{
			Name:         name,
			Path:         p,
			OriginalName: uploads.OriginalFromName(name),
			ContentType:  info.ContentType,
			Size:         info.Size,
			Backend:      local.Kind(),
		}
		if err := repo.Record(ctx, rec); err != nil {
			log.Printf("record %s: %v", p, err)
			continue
		}
		created++
		fmt.Printf("recorded upload id=%d path=%s\n", rec.ID, p)
	}
	fmt.Printf("scanned %d files, recorded %d\n", len(names), created)
}
