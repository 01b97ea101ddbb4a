package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	"Symbiotic/internal/services/features"
	pkgch "Symbiotic/pkg/clickhouse"
	applogger "Symbiotic/pkg/logger"
)

// CandleSchema creates the minute-candle table the store aggregates from.
var CandleSchema = []string{
	`CREATE DATABASE IF NOT EXISTS symbiotic`,
	`CREATE TABLE IF NOT EXISTS symbiotic.candles_1m (
        bucket DateTime64(3, 'UTC'),
        symbol LowCardinality(String),
        open   Float64,
        high   Float64,
        low    Float64,
        close  Float64,
        vol    Float64
    ) ENGINE = ReplacingMergeTree
    PARTITION BY toYYYYMM(bucket)
    ORDER BY (symbol, bucket)`,
}

const candleSelect = `
        SELECT toStartOfInterval(bucket, INTERVAL %d SECOND) AS b,
               symbol,
               argMin(open, bucket),
               max(high),
               min(low),
               argMax(close, bucket),
               sum(vol)
        FROM symbiotic.candles_1m`

// CHCandleStore implements CandleStore backed by ClickHouse minute candles.
type CHCandleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger) *CHCandleStore {
	return NewCHCandleStoreFromDB(ch.DB(), l)
}

func NewCHCandleStoreFromDB(db *sql.DB, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: db, l: l}
}

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	from, to = features.AlignFromTo(from, to, tf)
	q := fmt.Sprintf(candleSelect, int(tf.Duration().Seconds())) + `
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        GROUP BY b, symbol
        ORDER BY b ASC`
	out, err := s.query(ctx, "get_candles", q, symbol, tf, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	return out, nil
}

// GetLatestNCandles returns the most recent n candles in ascending time order.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	q := fmt.Sprintf(candleSelect, int(tf.Duration().Seconds())) + `
        WHERE symbol = ?
        GROUP BY b, symbol
        ORDER BY b DESC
        LIMIT ?`
	out, err := s.query(ctx, "latest_candles", q, symbol, tf, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHCandleStore) query(ctx context.Context, op, q, symbol string, tf domrepo.Timeframe, args ...interface{}) ([]models.Candle, error) {
	start := time.Now()
	fail := func(stage string, err error) error {
		s.l.Error("clickhouse "+op+" "+stage+" error",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return err
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail("query", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fail("scan", fmt.Errorf("scan candle: %w", err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("rows", fmt.Errorf("rows: %w", err))
	}
	s.l.Debug("clickhouse "+op+" ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
