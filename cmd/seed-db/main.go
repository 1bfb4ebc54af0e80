package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazakat/storefront/internal/domain/coupon"
	"github.com/nazakat/storefront/internal/domain/product"
	"github.com/nazakat/storefront/internal/repository"
)

type offerJSON struct {
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type productJSON struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Image       string               `json:"image"`
	Images      []string             `json:"images"`
	Collection  string               `json:"collection"`
	Rating      decimal.Decimal      `json:"rating"`
	Offers      map[string]offerJSON `json:"offers"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, pj := range products {
		offers := make(map[product.Tier]product.Offer, len(pj.Offers))
		for raw, o := range pj.Offers {
			tier, err := product.ParseTier(raw)
			if err != nil {
				return errors.Wrapf(err, "product %s", pj.ID)
			}
			offers[tier] = product.Offer{Price: o.Price, Stock: o.Stock}
		}

		p := &product.Product{
			ID:          pj.ID,
			Name:        pj.Name,
			Description: pj.Description,
			Image:       pj.Image,
			Images:      pj.Images,
			Collection:  pj.Collection,
			Rating:      pj.Rating,
			Offers:      offers,
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", pj.ID)
		}

		slog.Info("upserted product", slog.String("id", pj.ID), slog.String("name", pj.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	slog.Info("seeding starter coupons")

	now := time.Now()
	maxWelcome := decimal.NewFromInt(200)
	coupons := []coupon.Coupon{
		{
			Code:            "WELCOME10",
			Description:     "10% off your first order",
			Type:            coupon.TypePercentage,
			Value:           decimal.NewFromInt(10),
			MinimumAmount:   decimal.NewFromInt(500),
			MaximumDiscount: &maxWelcome,
			ValidFrom:       now,
			ValidUntil:      now.AddDate(1, 0, 0),
			Active:          true,
		},
		{
			Code:          "SAVE50",
			Description:   "Rs. 50 off orders above Rs. 1000",
			Type:          coupon.TypeFixed,
			Value:         decimal.NewFromInt(50),
			MinimumAmount: decimal.NewFromInt(1000),
			ValidFrom:     now,
			ValidUntil:    now.AddDate(1, 0, 0),
			Active:        true,
		},
	}

	for i := range coupons {
		c := &coupons[i]
		err := repo.Create(ctx, c)
		if errors.Is(err, coupon.ErrDuplicateCode) {
			slog.Info("coupon already exists", slog.String("code", c.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create coupon %s", c.Code)
		}

		slog.Info("created coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}
