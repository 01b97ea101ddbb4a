package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	xhttp "Symbiotic/pkg/http"
	"Symbiotic/pkg/logger"
)

const assetEmbed = "assets(id,name,symbol,type,currency)"

// PostgRESTSource reads dashboard tables through a Supabase REST endpoint.
type PostgRESTSource struct {
	attempts int
	timeout  time.Duration
	client   *xhttp.Client
	log      *logger.Logger
}

// PostgRESTOption configures PostgRESTSource.
type PostgRESTOption func(*PostgRESTSource)

// WithRESTAttempts sets how many times a failed read is tried.
func WithRESTAttempts(n int) PostgRESTOption {
	return func(s *PostgRESTSource) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithRESTTimeout sets the per-request timeout.
func WithRESTTimeout(d time.Duration) PostgRESTOption {
	return func(s *PostgRESTSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRESTLogger attaches a logger.
func WithRESTLogger(l *logger.Logger) PostgRESTOption {
	return func(s *PostgRESTSource) { s.log = l }
}

// NewPostgRESTSource builds a source for the project at baseURL (e.g. https://xyz.supabase.co).
func NewPostgRESTSource(baseURL, apiKey string, opts ...PostgRESTOption) (*PostgRESTSource, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("postgrest source: url and key are required")
	}
	s := &PostgRESTSource{
		attempts: 2,
		timeout:  10 * time.Second,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = xhttp.NewClient(
		xhttp.WithBaseURL(xhttp.JoinURL(baseURL, "rest/v1")),
		xhttp.WithTimeout(s.timeout),
		xhttp.WithHeader("apikey", apiKey),
		xhttp.WithHeader("Authorization", "Bearer "+apiKey),
	)
	return s, nil
}

func (s *PostgRESTSource) ListQuotes(ctx context.Context) ([]models.PriceQuote, error) {
	var rows []quoteRow
	q := url.Values{"select": {"*," + assetEmbed}}
	if err := s.getWithRetry(ctx, domrepo.TableMarketData, q, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, quoteRow.toModel), nil
}

// ListHoldings reads the user's holdings, then resolves their tickers against assets by symbol.
func (s *PostgRESTSource) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	if userID == "" {
		return []models.Holding{}, nil
	}
	var rows []holdingRow
	q := url.Values{
		"select":  {"id,user_id,ticker,quantity,average_price,current_value"},
		"user_id": {"eq." + userID},
	}
	if err := s.getWithRetry(ctx, domrepo.TableHoldings, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.Holding{}, nil
	}
	tickers := tickersOf(rows)
	var assets []assetRow
	if len(tickers) > 0 {
		// ilike matches case-insensitively like the Postgres join; attachAssets drops wildcard over-matches
		conds := make([]string, len(tickers))
		for i, t := range tickers {
			conds[i] = "symbol.ilike." + t
		}
		aq := url.Values{
			"select": {"id,name,symbol,type,currency"},
			"or":     {"(" + strings.Join(conds, ",") + ")"},
		}
		if err := s.getWithRetry(ctx, domrepo.TableAssets, aq, &assets); err != nil {
			return nil, err
		}
	}
	return mapRows(attachAssets(rows, assets), holdingRow.toModel), nil
}

func (s *PostgRESTSource) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	var rows []signalRow
	q := url.Values{
		"select": {"*," + assetEmbed},
		"order":  {"score.desc.nullslast"},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := s.getWithRetry(ctx, domrepo.TableSignals, q, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, signalRow.toModel), nil
}

func (s *PostgRESTSource) ListPredictionMarkets(ctx context.Context, limit int) ([]models.PredictionMarket, error) {
	var rows []predictionRow
	q := url.Values{
		"select": {"*"},
		"order":  {"volume.desc.nullslast"},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := s.getWithRetry(ctx, domrepo.TablePredictions, q, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, predictionRow.toModel), nil
}

func (s *PostgRESTSource) ListHealth(ctx context.Context, limit int) ([]models.HealthComponent, error) {
	var rows []healthRow
	q := url.Values{
		"select": {"*"},
		"order":  {"updated_at.desc.nullslast"},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := s.getWithRetry(ctx, domrepo.TableHealth, q, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, healthRow.toModel), nil
}

// Ping reads a single asset id.
func (s *PostgRESTSource) Ping(ctx context.Context) error {
	var rows []struct {
		ID flexID `json:"id"`
	}
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	return s.get(ctx, domrepo.TableAssets, q, &rows)
}

func (s *PostgRESTSource) get(ctx context.Context, table string, query url.Values, dest interface{}) error {
	if err := s.client.GetJSON(ctx, table, query, dest); err != nil {
		return domrepo.Unavailable(table, fmt.Errorf("get %s: %w", table, err))
	}
	return nil
}

// getWithRetry retries transport failures, 429 and 5xx with a linear backoff.
func (s *PostgRESTSource) getWithRetry(ctx context.Context, table string, query url.Values, dest interface{}) error {
	var err error
	for i := 1; i <= s.attempts; i++ {
		err = s.get(ctx, table, query, dest)
		if err == nil {
			return nil
		}
		if i == s.attempts || !xhttp.Retryable(err) {
			break
		}
		s.log.Debug("postgrest read failed, retrying",
			logger.String("table", table),
			logger.Int("attempt", i),
			logger.Error(err),
		)
		select {
		case <-time.After(time.Duration(i) * 100 * time.Millisecond):
		case <-ctx.Done():
			return domrepo.Unavailable(table, ctx.Err())
		}
	}
	return err
}

var _ domrepo.DataSource = (*PostgRESTSource)(nil)
