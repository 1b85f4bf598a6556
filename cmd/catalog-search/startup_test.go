package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"catalog-search/internal/common/database"
)

var fastRetry = retryPolicy{Attempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestNextDelay_Capped(t *testing.T) {
	assert.Equal(t, 4*time.Second, nextDelay(2*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextDelay(20*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextDelay(30*time.Second, 30*time.Second))
}

func TestPostgresRetry_TotalWaitIsBounded(t *testing.T) {
	var total time.Duration
	delay := postgresRetry.InitialDelay
	for i := 0; i < postgresRetry.Attempts-1; i++ {
		total += delay
		delay = nextDelay(delay, postgresRetry.MaxDelay)
	}
	assert.LessOrEqual(t, total, 5*time.Minute)
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, fastRetry, zaptest.NewLogger(t), "op")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("down")
	}, fastRetry, zaptest.NewLogger(t), "op")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryWithBackoff(ctx, func() error {
		calls++
		return errors.New("down")
	}, retryPolicy{Attempts: 5, InitialDelay: time.Hour}, zaptest.NewLogger(t), "op")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestConnectPostgres_ClosesFailedPools(t *testing.T) {
	failedDB, failedMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	failedMock.ExpectPing().WillReturnError(errors.New("connection refused"))
	failedMock.ExpectClose()

	goodDB, goodMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer goodDB.Close()
	goodMock.ExpectPing()

	pools := []*database.PostgresClient{{DB: failedDB}, {DB: goodDB}}
	opened := 0
	pg, err := connectPostgres(context.Background(), func() (*database.PostgresClient, error) {
		c := pools[opened]
		opened++
		return c, nil
	}, fastRetry, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Same(t, pools[1], pg)
	assert.Equal(t, 2, opened)
	assert.NoError(t, failedMock.ExpectationsWereMet())
	assert.NoError(t, goodMock.ExpectationsWereMet())
}
