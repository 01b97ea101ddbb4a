package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	pkgpg "Symbiotic/pkg/postgres"
)

const assetColumns = `
        a.id AS "asset.id", a.name AS "asset.name", a.symbol AS "asset.symbol",
        a.type AS "asset.type", a.currency AS "asset.currency"`

const (
	quotesQuery = `
        SELECT m.id, m.asset_id, m.price, m.price_change_pct, m.rsi, m.volume_24h, m.updated_at,` + assetColumns + `
        FROM market_data m
        LEFT JOIN assets a ON a.id = m.asset_id`

	holdingsQuery = `
        SELECT h.id, h.user_id, h.ticker, h.quantity, h.average_price, h.current_value,` + assetColumns + `
        FROM holdings h
        LEFT JOIN assets a ON upper(a.symbol) = upper(h.ticker)
        WHERE h.user_id = $1`

	signalsQuery = `
        SELECT s.id, s.signal_type, s.score, s.rsi, s.reasoning, s.created_at,` + assetColumns + `
        FROM trading_signals s
        LEFT JOIN assets a ON a.id = s.asset_id
        ORDER BY s.score DESC NULLS LAST
        LIMIT $1`

	predictionsQuery = `
        SELECT id, title, category, probability, volume, end_date
        FROM prediction_markets
        ORDER BY volume DESC NULLS LAST
        LIMIT $1`

	healthQuery = `
        SELECT id, component, status, message, updated_at
        FROM system_health
        ORDER BY updated_at DESC NULLS LAST
        LIMIT $1`
)

// PostgresSource reads dashboard tables directly from Postgres.
type PostgresSource struct {
	pg *pkgpg.Client
	db *sqlx.DB
}

func NewPostgresSource(pg *pkgpg.Client) *PostgresSource {
	return &PostgresSource{pg: pg, db: pg.DB()}
}

func (s *PostgresSource) ListQuotes(ctx context.Context) ([]models.PriceQuote, error) {
	var rows []quoteRow
	if err := s.db.SelectContext(ctx, &rows, quotesQuery); err != nil {
		return nil, domrepo.Unavailable(domrepo.TableMarketData, fmt.Errorf("select quotes: %w", err))
	}
	return mapRows(rows, quoteRow.toModel), nil
}

func (s *PostgresSource) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	if userID == "" {
		return []models.Holding{}, nil
	}
	var rows []holdingRow
	if err := s.db.SelectContext(ctx, &rows, holdingsQuery, userID); err != nil {
		return nil, domrepo.Unavailable(domrepo.TableHoldings, fmt.Errorf("select holdings: %w", err))
	}
	return mapRows(rows, holdingRow.toModel), nil
}

func (s *PostgresSource) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	var rows []signalRow
	if err := s.db.SelectContext(ctx, &rows, signalsQuery, limit); err != nil {
		return nil, domrepo.Unavailable(domrepo.TableSignals, fmt.Errorf("select signals: %w", err))
	}
	return mapRows(rows, signalRow.toModel), nil
}

func (s *PostgresSource) ListPredictionMarkets(ctx context.Context, limit int) ([]models.PredictionMarket, error) {
	var rows []predictionRow
	if err := s.db.SelectContext(ctx, &rows, predictionsQuery, limit); err != nil {
		return nil, domrepo.Unavailable(domrepo.TablePredictions, fmt.Errorf("select predictions: %w", err))
	}
	return mapRows(rows, predictionRow.toModel), nil
}

func (s *PostgresSource) ListHealth(ctx context.Context, limit int) ([]models.HealthComponent, error) {
	var rows []healthRow
	if err := s.db.SelectContext(ctx, &rows, healthQuery, limit); err != nil {
		return nil, domrepo.Unavailable(domrepo.TableHealth, fmt.Errorf("select health: %w", err))
	}
	return mapRows(rows, healthRow.toModel), nil
}

func (s *PostgresSource) Ping(ctx context.Context) error {
	if err := s.pg.Health(ctx); err != nil {
		return domrepo.Unavailable("postgres", err)
	}
	return nil
}

var _ domrepo.DataSource = (*PostgresSource)(nil)
