// Command backfill-covers re-scrapes stored comics that have no cover image
// yet and writes the extracted cover back. One-off maintenance tool for
// records created before cover extraction existed.
package main

import (
	"context"
	"log"

	"comixie/internal/comics"
	"comixie/internal/extract"
	"comixie/internal/fetch"
	"comixie/pkg/database"
	"comixie/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()

	ctx := context.Background()
	db := database.MustConnect(ctx, database.DefaultConfig())
	defer database.Disconnect(ctx, db)

	repo := comics.NewRepo(db)
	client := fetch.NewClient(cfg.FetchTimeout)

	missing, err := repo.ListMissingCover(ctx)
	if err != nil {
		log.Fatalf("list comics failed: %v", err)
	}
	log.Printf("[backfill] %d comics missing a cover", len(missing))

	updated := 0
	for _, comic := range missing {
		body, err := client.Get(ctx, comic.URL)
		if err != nil {
			log.Printf("[backfill] fetch %s failed: %v", comic.Slug, err)
			continue
		}

		detail, err := extract.ParseComicDetail(body)
		if err != nil || detail.Image == nil {
			log.Printf("[backfill] no cover found for %s", comic.Slug)
			continue
		}

		if err := repo.SetComicImage(ctx, comic.Slug, *detail.Image); err != nil {
			log.Printf("[backfill] update %s failed: %v", comic.Slug, err)
			continue
		}

		updated++
		if updated%50 == 0 {
			log.Printf("[backfill] processed %d comics...", updated)
		}
	}

	log.Printf("[backfill] done, %d covers updated", updated)
}
