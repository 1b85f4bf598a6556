package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalog-search/internal/common/database"
)

type retryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// postgresRetry waits a little over three minutes in total before giving up.
var postgresRetry = retryPolicy{Attempts: 10, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

// retryWithBackoff doubles the delay between attempts up to policy.MaxDelay.
// It stops early when ctx is done.
func retryWithBackoff(ctx context.Context, operation func() error, policy retryPolicy, log *zap.Logger, operationName string) error {
	var err error
	delay := policy.InitialDelay

	for i := 0; i < policy.Attempts; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < policy.Attempts-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", policy.Attempts),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s aborted: %w", operationName, ctx.Err())
			case <-time.After(delay):
			}
			delay = nextDelay(delay, policy.MaxDelay)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, policy.Attempts, err)
}

func nextDelay(delay, max time.Duration) time.Duration {
	delay *= 2
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// connectPostgres opens and pings the pool, closing every pool whose ping
// failed before the next attempt.
func connectPostgres(ctx context.Context, open func() (*database.PostgresClient, error), policy retryPolicy, log *zap.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := retryWithBackoff(ctx, func() error {
		client, err := open()
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			if cerr := client.Close(); cerr != nil {
				log.Warn("closing failed postgres pool", zap.Error(cerr))
			}
			return err
		}
		pg = client
		return nil
	}, policy, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	return pg, nil
}
