package repository

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"Symbiotic/internal/domain/models"
	xutil "Symbiotic/pkg/util"
)

// Row types mirror the backend tables with every column nullable. They decode from both
// PostgREST JSON (json tags) and sqlx scans (db tags), and are normalised by toModel.

// flexID accepts string, numeric and uuid identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(string(b))
	return nil
}

func (f *flexID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = ""
	case string:
		*f = flexID(v)
	case []byte:
		*f = flexID(string(v))
	case int64:
		*f = flexID(strconv.FormatInt(v, 10))
	default:
		*f = flexID(fmt.Sprint(v))
	}
	return nil
}

// flexTime accepts timestamps with or without zone; null leaves it zero.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if s == nil {
		f.Time = time.Time{}
		return nil
	}
	t, ok := xutil.ParseTime(*s)
	if !ok {
		return fmt.Errorf("parse timestamp %q", *s)
	}
	f.Time = t
	return nil
}

func (f *flexTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		f.Time = time.Time{}
	case time.Time:
		f.Time = v
	case string:
		f.Time = xutil.ParseTimeDefault(v, time.Time{})
	case []byte:
		f.Time = xutil.ParseTimeDefault(string(v), time.Time{})
	default:
		return fmt.Errorf("scan timestamp: unsupported %T", src)
	}
	return nil
}

func (f flexTime) Value() (driver.Value, error) { return f.Time, nil }

type assetRow struct {
	ID       flexID  `json:"id" db:"id"`
	Name     *string `json:"name" db:"name"`
	Symbol   *string `json:"symbol" db:"symbol"`
	Type     *string `json:"type" db:"type"`
	Currency *string `json:"currency" db:"currency"`
}

func (r assetRow) present() bool {
	return r.ID != "" || text(r.Symbol, "") != ""
}

func (r assetRow) toModel() models.Asset {
	typ, ok := models.ParseAssetType(text(r.Type, ""))
	if !ok {
		typ = models.AssetStock
	}
	return models.Asset{
		ID:       string(r.ID),
		Name:     text(r.Name, models.UnknownText),
		Symbol:   strings.ToUpper(text(r.Symbol, models.UnknownText)),
		Type:     typ,
		Currency: text(r.Currency, models.UnknownText),
	}
}

type quoteRow struct {
	ID        flexID              `json:"id" db:"id"`
	AssetID   flexID              `json:"asset_id" db:"asset_id"`
	Price     decimal.NullDecimal `json:"price" db:"price"`
	ChangePct *float64            `json:"price_change_pct" db:"price_change_pct"`
	RSI       *float64            `json:"rsi" db:"rsi"`
	Volume24h decimal.NullDecimal `json:"volume_24h" db:"volume_24h"`
	UpdatedAt flexTime            `json:"updated_at" db:"updated_at"`
	Asset     assetRow            `json:"assets" db:"asset"`
}

func (r quoteRow) toModel() models.PriceQuote {
	return models.PriceQuote{
		Asset:     r.Asset.toModel(),
		Price:     nonNegative(r.Price),
		ChangePct: num(r.ChangePct),
		RSI:       num(r.RSI),
		Volume24h: nonNegative(r.Volume24h),
		UpdatedAt: r.UpdatedAt.Time,
	}
}

type holdingRow struct {
	ID           flexID              `json:"id" db:"id"`
	UserID       flexID              `json:"user_id" db:"user_id"`
	Ticker       *string             `json:"ticker" db:"ticker"`
	Quantity     decimal.NullDecimal `json:"quantity" db:"quantity"`
	AveragePrice decimal.NullDecimal `json:"average_price" db:"average_price"`
	CurrentValue decimal.NullDecimal `json:"current_value" db:"current_value"`
	Asset        assetRow            `json:"assets" db:"asset"`
}

func (r holdingRow) toModel() models.Holding {
	ticker := strings.ToUpper(text(r.Ticker, ""))
	asset := models.PlaceholderAsset(ticker)
	if r.Asset.present() {
		asset = r.Asset.toModel()
	}
	if ticker == "" {
		ticker = asset.Symbol
	}
	return models.Holding{
		ID:           string(r.ID),
		UserID:       string(r.UserID),
		Ticker:       ticker,
		Asset:        asset,
		Quantity:     nonNegative(r.Quantity),
		AveragePrice: nonNegative(r.AveragePrice),
		CurrentValue: orZero(r.CurrentValue),
	}
}

type signalRow struct {
	ID         flexID   `json:"id" db:"id"`
	SignalType *string  `json:"signal_type" db:"signal_type"`
	Score      *float64 `json:"score" db:"score"`
	RSI        *float64 `json:"rsi" db:"rsi"`
	Reasoning  *string  `json:"reasoning" db:"reasoning"`
	CreatedAt  flexTime `json:"created_at" db:"created_at"`
	Asset      assetRow `json:"assets" db:"asset"`
}

func (r signalRow) toModel() models.Signal {
	kind, ok := models.ParseSignalKind(text(r.SignalType, ""))
	if !ok {
		kind = models.SignalHold
	}
	return models.Signal{
		ID:        string(r.ID),
		Asset:     r.Asset.toModel(),
		Kind:      kind,
		Score:     int(math.Round(clampFloat(num(r.Score), 0, 100))),
		RSI:       num(r.RSI),
		Reasoning: text(r.Reasoning, ""),
		CreatedAt: r.CreatedAt.Time,
	}
}

type predictionRow struct {
	ID          flexID              `json:"id" db:"id"`
	Title       *string             `json:"title" db:"title"`
	Category    *string             `json:"category" db:"category"`
	Probability *float64            `json:"probability" db:"probability"`
	Volume      decimal.NullDecimal `json:"volume" db:"volume"`
	EndDate     flexTime            `json:"end_date" db:"end_date"`
}

func (r predictionRow) toModel() models.PredictionMarket {
	pm := models.PredictionMarket{
		ID:          string(r.ID),
		Title:       text(r.Title, models.UnknownText),
		Category:    text(r.Category, models.UnknownText),
		Probability: clampFloat(num(r.Probability), 0, 1),
		Volume:      nonNegative(r.Volume),
	}
	if !r.EndDate.IsZero() {
		end := r.EndDate.Time
		pm.EndDate = &end
	}
	return pm
}

type healthRow struct {
	ID        flexID   `json:"id" db:"id"`
	Component *string  `json:"component" db:"component"`
	Status    *string  `json:"status" db:"status"`
	Message   *string  `json:"message" db:"message"`
	UpdatedAt flexTime `json:"updated_at" db:"updated_at"`
}

func (r healthRow) toModel() models.HealthComponent {
	return models.HealthComponent{
		Component: text(r.Component, models.UnknownText),
		Status:    models.ParseHealthStatus(text(r.Status, "")),
		Message:   text(r.Message, ""),
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func text(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return strings.TrimSpace(*s)
}

func num(f *float64) float64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return 0
	}
	return *f
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

func nonNegative(d decimal.NullDecimal) decimal.Decimal {
	v := orZero(d)
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func mapRows[R any, M any](rows []R, fn func(R) M) []M {
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}

// tickersOf returns the distinct upper-cased tickers of rows, quoted for a PostgREST in() filter.
func tickersOf(rows []holdingRow) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		t := strings.ToUpper(text(r.Ticker, ""))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, strconv.Quote(t))
	}
	return out
}

// attachAssets sets each row's asset by case-insensitive symbol match.
func attachAssets(rows []holdingRow, assets []assetRow) []holdingRow {
	bySymbol := make(map[string]assetRow, len(assets))
	for _, a := range assets {
		bySymbol[strings.ToUpper(text(a.Symbol, ""))] = a
	}
	out := make([]holdingRow, len(rows))
	for i, r := range rows {
		if a, ok := bySymbol[strings.ToUpper(text(r.Ticker, ""))]; ok {
			r.Asset = a
		}
		out[i] = r
	}
	return out
}
