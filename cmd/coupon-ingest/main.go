// Command coupon-ingest loads campaign promo codes exported as gzipped text
// files, one code per line. Marketing exports the same campaign from several
// systems; a code counts as confirmed only when it appears in at least two
// export files, which filters out typos and half-synced rows. Confirmed codes
// are created as single-use percentage coupons.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nazakat/storefront/internal/domain/coupon"
	"github.com/nazakat/storefront/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 6
	maxCodeLen    = 12
)

func main() {
	var (
		dataDir     string
		databaseURL string
		percentOff  int
		minAmount   int
		validDays   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing campaign export .gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&percentOff, "percent-off", 10, "discount percentage for ingested codes")
	flag.IntVar(&minAmount, "min-amount", 500, "minimum order amount in rupees")
	flag.IntVar(&validDays, "valid-days", 30, "validity window in days")
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

	if err := run(ctx, dataDir, databaseURL, percentOff, minAmount, validDays); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, percentOff, minAmount, validDays int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) < 2 {
		return errors.Errorf("need at least 2 export files in %s, found %d", dataDir, len(files))
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: confirming codes across exports")

	confirmed, err := confirmCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "confirm codes")
	}

	slog.Info("confirmed codes", slog.Int("count", len(confirmed)))
	if len(confirmed) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := repository.NewCouponRepository(pool)
	return writeCoupons(ctx, repo, confirmed, percentOff, minAmount, validDays)
}

// buildFilters streams every export once and builds one bloom filter per file.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamGzFile(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				filter.AddString(code)
				if count++; count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("codes", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "filter file %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_codes", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// confirmCodes re-streams each export and marks codes that another export's
// filter also contains. Codes seen in 2+ files survive.
func confirmCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	perFile := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)

			err := streamGzFile(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				for j, f := range filters {
					if j == i {
						continue
					}
					if f.TestString(code) {
						candidates[code] |= fileBit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}

			slog.Info("pass 2 complete", slog.Int("file", i+1), slog.Int("candidates", len(candidates)))
			perFile[i] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, candidates := range perFile {
		for code, mask := range candidates {
			merged[code] |= mask
		}
	}

	var confirmed []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, code)
		}
	}
	return confirmed, nil
}

// streamGzFile calls fn for every line of a gzip-compressed file.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

func writeCoupons(ctx context.Context, repo *repository.CouponRepository, codes []string, percentOff, minAmount, validDays int) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)))

	now := time.Now()
	for i, code := range codes {
		c := &coupon.Coupon{
			Code:          code,
			Description:   "Campaign promo code",
			Type:          coupon.TypePercentage,
			Value:         decimal.NewFromInt(int64(percentOff)),
			MinimumAmount: decimal.NewFromInt(int64(minAmount)),
			UsageLimit:    1,
			ValidFrom:     now,
			ValidUntil:    now.AddDate(0, 0, validDays),
			Active:        true,
		}

		err := repo.Create(ctx, c)
		if err != nil && !errors.Is(err, coupon.ErrDuplicateCode) {
			return errors.Wrapf(err, "create coupon %s", code)
		}

		if (i+1)%1000 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}
	return nil
}
