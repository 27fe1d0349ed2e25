package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"domu/internal/adapters/ical"
	"domu/internal/adapters/observability"
	redisad "domu/internal/adapters/redis"
	"domu/internal/app"
	"domu/internal/domain"
	"domu/internal/shared"
	mysqlrepo "domu/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.SyncWorkers).
		Int("rps", cfg.FeedRPS).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(repo, repo, repo, repo, cache, cfg.CacheTTL)
	syncer := app.NewSyncService(ical.New(cfg.FeedRPS), repo, q)

	feeds, err := repo.ListFeeds(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing feeds failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.SyncWorkers))
	var wg sync.WaitGroup

	for _, feed := range feeds {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(f domain.Feed) {
			defer wg.Done()
			defer sem.Release(1)

			if err := syncer.SyncFeed(ctx, f); err != nil {
				log.Warn().Str("property", f.PropertyID.String()).Str("source", string(f.Source)).Err(err).Msg("feed sync failed")
			}
		}(feed)
	}

	wg.Wait()
	log.Info().Int("feeds", len(feeds)).Msg("sync completed")
}
