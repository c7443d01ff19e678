package main

import (
	"bufio"
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/promo"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxLineBytes  = 64 << 10
)

// Creator is implemented by *promo.Service.
type Creator interface {
	CreateMonetary(ctx context.Context, req promo.CreateRequest) (*promo.PromoCode, error)
	CreatePercentage(ctx context.Context, req promo.CreateRequest) (*promo.PromoCode, error)
}

// record is one decoded input line.
type record struct {
	Method promo.Method
	Req    promo.CreateRequest
}

// Stats counts import results.
type Stats struct {
	Lines      atomic.Int64
	Created    atomic.Int64
	Duplicates atomic.Int64
	Invalid    atomic.Int64
}

type ingester struct {
	lg      *zap.Logger
	creator Creator
	workers int
}

// Run imports files in two passes. Pass 1 streams every code through a bloom
// filter and remembers the ones the filter has probably seen before. Pass 2
// streams again and imports each code once: codes outside that set are
// unique, codes inside it are deduplicated exactly.
func (i *ingester) Run(ctx context.Context, files []string) (*Stats, error) {
	i.lg.Info("Pass 1: scanning for repeated codes", zap.Int("files", len(files)))
	repeated, err := i.findRepeated(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "find repeated codes")
	}
	i.lg.Info("Pass 1 complete", zap.Int("repeated_candidates", len(repeated)))

	i.lg.Info("Pass 2: importing", zap.Int("workers", i.workers))
	stats := &Stats{}
	if err := i.importAll(ctx, files, repeated, stats); err != nil {
		return stats, errors.Wrap(err, "import")
	}
	return stats, nil
}

func (i *ingester) findRepeated(ctx context.Context, files []string) (map[string]struct{}, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	repeated := make(map[string]struct{})

	var count int64
	for _, path := range files {
		if err := streamGzFile(ctx, path, func(line []byte) error {
			code, err := decodeCode(line)
			if err != nil || code == "" {
				return nil
			}
			if filter.TestAndAddString(code) {
				repeated[code] = struct{}{}
			}
			count++
			if count%progressEvery == 0 {
				i.lg.Info("Pass 1 progress", zap.Int64("codes", count))
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return repeated, nil
}

func (i *ingester) importAll(ctx context.Context, files []string, repeated map[string]struct{}, stats *Stats) error {
	g, ctx := errgroup.WithContext(ctx)
	records := make(chan record, i.workers*4)

	g.Go(func() error {
		defer close(records)
		seen := make(map[string]struct{}, len(repeated))
		for _, path := range files {
			err := streamGzFile(ctx, path, func(line []byte) error {
				stats.Lines.Add(1)
				rec, err := decodeRecord(line)
				if err != nil {
					stats.Invalid.Add(1)
					i.lg.Warn("Skip malformed line", zap.String("file", path), zap.Error(err))
					return nil
				}
				if _, ok := repeated[rec.Req.Code]; ok {
					if _, dup := seen[rec.Req.Code]; dup {
						stats.Duplicates.Add(1)
						return nil
					}
					seen[rec.Req.Code] = struct{}{}
				}
				select {
				case records <- rec:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	for range max(i.workers, 1) {
		g.Go(func() error {
			for rec := range records {
				if err := i.create(ctx, rec, stats); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (i *ingester) create(ctx context.Context, rec record, stats *Stats) error {
	var err error
	switch rec.Method {
	case promo.MethodMonetary:
		_, err = i.creator.CreateMonetary(ctx, rec.Req)
	case promo.MethodPercentage:
		_, err = i.creator.CreatePercentage(ctx, rec.Req)
	default:
		err = promo.ErrUnknownMethod
	}

	switch {
	case err == nil:
		if n := stats.Created.Add(1); n%progressEvery == 0 {
			i.lg.Info("Import progress", zap.Int64("created", n))
		}
		return nil
	case apperror.Is(err, apperror.KindDuplicate):
		stats.Duplicates.Add(1)
		return nil
	case apperror.Is(err, apperror.KindValidation):
		stats.Invalid.Add(1)
		i.lg.Warn("Skip invalid promo code", zap.String("code", rec.Req.Code), zap.Error(err))
		return nil
	default:
		return errors.Wrapf(err, "create promo code %s", rec.Req.Code)
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-empty
// line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// decodeCode extracts only the code field of a line.
func decodeCode(line []byte) (string, error) {
	var code string
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "code" {
			return d.Skip()
		}
		v, err := d.Str()
		code = v
		return err
	})
	return code, err
}

func decodeRecord(line []byte) (record, error) {
	var rec record
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "code":
			v, err := d.Str()
			rec.Req.Code = v
			return err
		case "method":
			v, err := d.Str()
			rec.Method = promo.Method(v)
			return err
		case "currency":
			v, err := d.Str()
			rec.Req.Currency = v
			return err
		case "maxUsages":
			v, err := d.Int()
			rec.Req.MaxUsages = v
			return err
		case "amount":
			amount, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "amount")
			}
			rec.Req.Amount = &amount
			return nil
		case "expirationDate":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.DateOnly, v)
			if err != nil {
				return errors.Wrap(err, "expirationDate")
			}
			rec.Req.ExpirationDate = t
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return record{}, errors.Wrap(err, "decode promo code")
	}
	return rec, nil
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s", d.Next())
	}
	return decimal.NewFromString(raw)
}
