// Command seed-db loads demo products and promo codes into the database.
// Entries that already exist are skipped, so it can be run repeatedly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/product"
	"github.com/xenking/promo-pricing/internal/domain/promo"
	"github.com/xenking/promo-pricing/internal/repository"
)

type seedFile struct {
	Products   []productJSON `json:"products"`
	PromoCodes []promoJSON   `json:"promoCodes"`
}

type productJSON struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

type promoJSON struct {
	Code           string          `json:"code"`
	Method         promo.Method    `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ExpirationDate string          `json:"expirationDate"`
	MaxUsages      int             `json:"maxUsages"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/seed.json", "path to seed JSON file")
	flag.Parse()

	lg, err := zap.NewDevelopment()
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

	if err := run(ctx, lg, databaseURL, seedPath); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, seedPath string) error {
	data, err := readSeedFile(seedPath)
	if err != nil {
		return err
	}

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	currencies := repository.NewCurrencyRepository(pool)
	products := product.NewService(repository.NewProductRepository(pool), currencies)
	codes := promo.NewService(repository.NewPromoRepository(pool), currencies)

	if err := seedProducts(ctx, lg, products, data.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromoCodes(ctx, lg, codes, data.PromoCodes); err != nil {
		return errors.Wrap(err, "seed promo codes")
	}
	return nil
}

func readSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	var data seedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "parse seed file")
	}
	return &data, nil
}

type productCreator interface {
	Create(ctx context.Context, req product.CreateRequest) (*product.Product, error)
}

func seedProducts(ctx context.Context, lg *zap.Logger, svc productCreator, products []productJSON) error {
	lg.Info("Seeding products", zap.Int("count", len(products)))

	for _, p := range products {
		price := p.Price
		created, err := svc.Create(ctx, product.CreateRequest{
			Name:        p.Name,
			Description: p.Description,
			Price:       &price,
			Currency:    p.Currency,
		})
		if apperror.Is(err, apperror.KindDuplicate) {
			lg.Info("Product exists, skipping", zap.String("name", p.Name))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create product %q", p.Name)
		}
		lg.Info("Created product", zap.Int64("id", created.ID), zap.String("name", created.Name))
	}
	return nil
}

type promoCreator interface {
	CreateMonetary(ctx context.Context, req promo.CreateRequest) (*promo.PromoCode, error)
	CreatePercentage(ctx context.Context, req promo.CreateRequest) (*promo.PromoCode, error)
}

func seedPromoCodes(ctx context.Context, lg *zap.Logger, svc promoCreator, codes []promoJSON) error {
	lg.Info("Seeding promo codes", zap.Int("count", len(codes)))

	for _, c := range codes {
		expires, err := time.Parse(time.DateOnly, c.ExpirationDate)
		if err != nil {
			return errors.Wrapf(err, "parse expiration date of %s", c.Code)
		}
		amount := c.Amount
		req := promo.CreateRequest{
			Code:           c.Code,
			ExpirationDate: expires,
			MaxUsages:      c.MaxUsages,
			Amount:         &amount,
			Currency:       c.Currency,
		}

		create := svc.CreateMonetary
		if c.Method == promo.MethodPercentage {
			create = svc.CreatePercentage
		} else if c.Method != promo.MethodMonetary {
			return errors.Errorf("promo code %s: unknown method %q", c.Code, c.Method)
		}

		created, err := create(ctx, req)
		if apperror.Is(err, apperror.KindDuplicate) {
			lg.Info("Promo code exists, skipping", zap.String("code", c.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create promo code %s", c.Code)
		}
		lg.Info("Created promo code",
			zap.String("code", created.Code),
			zap.String("method", string(created.Method)),
		)
	}
	return nil
}
