package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	pkgpg "Symbiotic/pkg/postgres"
)

var assetCols = []string{"asset.id", "asset.name", "asset.symbol", "asset.type", "asset.currency"}

func newMockSource(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresSource(pkgpg.NewClientFromDB(sqlx.NewDb(db, "postgres"))), mock
}

func TestPostgresSource_ListQuotes(t *testing.T) {
	src, mock := newMockSource(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cols := append([]string{"id", "asset_id", "price", "price_change_pct", "rsi", "volume_24h", "updated_at"}, assetCols...)
	mock.ExpectQuery(`FROM market_data m\s+LEFT JOIN assets a`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(10), []byte("64000.50"), 5.0, 61.0, []byte("1200"), ts, int64(10), "Bitcoin", "BTC", "crypto", "USD").
			AddRow(int64(2), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil))

	quotes, err := src.ListQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Bitcoin", quotes[0].Asset.Name)
	assert.Equal(t, "10", quotes[0].Asset.ID)
	assert.Equal(t, "64000.5", quotes[0].Price.String())
	assert.Equal(t, ts, quotes[0].UpdatedAt)
	assert.Equal(t, models.UnknownText, quotes[1].Asset.Symbol)
	assert.True(t, quotes[1].Volume24h.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ListHoldings(t *testing.T) {
	src, mock := newMockSource(t)

	cols := append([]string{"id", "user_id", "ticker", "quantity", "average_price", "current_value"}, assetCols...)
	mock.ExpectQuery(`FROM holdings h`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("h1", "u1", "eth", []byte("2"), []byte("1000"), []byte("6000"), "5", "Ether", "ETH", "crypto", "USD").
			AddRow("h2", "u1", "NOPE", []byte("3"), []byte("10"), nil, nil, nil, nil, nil, nil))

	holdings, err := src.ListHoldings(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "ETH", holdings[0].Ticker)
	assert.Equal(t, "Ether", holdings[0].Asset.Name)
	assert.Equal(t, "2000", holdings[0].CostBasis().String())
	assert.Equal(t, models.PlaceholderAsset("NOPE"), holdings[1].Asset)
	assert.True(t, holdings[1].CurrentValue.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_RankedQueriesPassLimit(t *testing.T) {
	src, mock := newMockSource(t)

	sigCols := append([]string{"id", "signal_type", "score", "rsi", "reasoning", "created_at"}, assetCols...)
	mock.ExpectQuery(`FROM trading_signals s`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(sigCols).
			AddRow(int64(7), "SELL", int64(71), 74.0, "overbought", time.Now(), int64(1), "Tesla", "TSLA", "stock", "USD"))

	mock.ExpectQuery(`FROM prediction_markets`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "category", "probability", "volume", "end_date"}).
			AddRow("p1", "Election", "politics", 0.55, []byte("120000"), nil))

	mock.ExpectQuery(`FROM system_health`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "component", "status", "message", "updated_at"}).
			AddRow(int64(1), "scheduler", "degraded", "lagging", time.Now()))

	signals, err := src.ListSignals(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.SignalSell, signals[0].Kind)
	assert.Equal(t, 71, signals[0].Score)

	markets, err := src.ListPredictionMarkets(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Nil(t, markets[0].EndDate)

	health, err := src.ListHealth(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, health, 1)
	assert.Equal(t, models.StatusDegraded, health[0].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryErrorIsSourceError(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery(`FROM system_health`).WillReturnError(errors.New("connection reset"))

	_, err := src.ListHealth(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domrepo.ErrDataSourceUnavailable))
	var se *domrepo.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domrepo.TableHealth, se.Source)
}

func TestPostgresSource_AnonymousHoldingsSkipQuery(t *testing.T) {
	src, mock := newMockSource(t)
	holdings, err := src.ListHoldings(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, holdings)
	require.NoError(t, mock.ExpectationsWereMet())
}
