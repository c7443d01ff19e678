package health

import (
	"context"
	"runtime"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
)

// Pinger is implemented by pgxpool.Pool and the Redis report cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports the result of p.Ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// GoroutineCountCheck fails when more than threshold goroutines are running,
// which usually means a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// KafkaCheck fails when none of the brokers answers a metadata request.
func KafkaCheck(brokers []string) CheckFunc {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return errors.New("no brokers configured")
		}

		cfg := sarama.NewConfig()
		cfg.Net.DialTimeout = 3 * time.Second
		cfg.Net.ReadTimeout = 5 * time.Second
		cfg.Net.WriteTimeout = 5 * time.Second
		cfg.Metadata.Retry.Max = 1
		cfg.Metadata.Retry.Backoff = 500 * time.Millisecond
		if deadline, ok := ctx.Deadline(); ok {
			if d := time.Until(deadline); d > 0 && d < cfg.Net.DialTimeout {
				cfg.Net.DialTimeout = d
			}
		}

		client, err := sarama.NewClient(brokers, cfg)
		if err != nil {
			return errors.Wrap(err, "kafka")
		}
		return client.Close()
	}
}
