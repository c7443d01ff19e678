// Command promo-ingest bulk-imports promo codes from gzip-compressed NDJSON
// files. Each line is one promo code:
//
//	{"code":"SPRING25","method":"MONETARY","amount":"25.00","currency":"USD","expirationDate":"2030-04-01","maxUsages":100}
//
// Codes repeated across the input are imported once. Codes that already exist
// in the database are skipped.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/promo-pricing/internal/domain/promo"
	"github.com/xenking/promo-pricing/internal/repository"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		workers     int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing promo code files")
	flag.StringVar(&pattern, "pattern", "*.ndjson.gz", "glob of files to import inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 8, "concurrent database writers")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, filepath.Join(dataDir, pattern), databaseURL, workers); err != nil {
		lg.Fatal("Promo ingest failed", zap.Error(err))
	}
	lg.Info("Promo ingest completed")
}

func run(ctx context.Context, lg *zap.Logger, glob, databaseURL string, workers int) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrapf(err, "glob %s", glob)
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s", glob)
	}
	sort.Strings(files)

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc := promo.NewService(
		repository.NewPromoRepository(pool),
		repository.NewCurrencyRepository(pool),
	)
	ing := &ingester{
		lg:      lg,
		creator: svc,
		workers: workers,
	}

	stats, err := ing.Run(ctx, files)
	if err != nil {
		return err
	}
	lg.Info("Import summary",
		zap.Int64("created", stats.Created.Load()),
		zap.Int64("duplicates", stats.Duplicates.Load()),
		zap.Int64("invalid", stats.Invalid.Load()),
	)
	return nil
}
