package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type DashboardRequest struct {
	UserID          string `query:"user_id" json:"user_id"`
	SignalLimit     int    `query:"signal_limit" json:"signal_limit" default:"20" validate:"gte=1,lte=500"`
	PredictionLimit int    `query:"prediction_limit" json:"prediction_limit" default:"10" validate:"gte=1,lte=500"`
	HealthLimit     int    `query:"health_limit" json:"health_limit" default:"10" validate:"gte=1,lte=500"`
	Kind            string `query:"kind" json:"kind" validate:"omitempty,ci_oneof=BUY SELL HOLD"`
	AssetType       string `query:"asset_type" json:"asset_type" validate:"omitempty,ci_oneof=crypto stock"`
	MinScore        int    `query:"min_score" json:"min_score" default:"0" validate:"gte=0,lte=100"`
	WithCorrelation bool   `query:"correlation" json:"correlation"`
}

type PortfolioRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required"`
}

type SignalsRequest struct {
	Limit     int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
	Kind      string `query:"kind" json:"kind" validate:"omitempty,ci_oneof=BUY SELL HOLD"`
	AssetType string `query:"asset_type" json:"asset_type" validate:"omitempty,ci_oneof=crypto stock"`
	MinScore  int    `query:"min_score" json:"min_score" default:"0" validate:"gte=0,lte=100"`
}

type LimitRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=500"`
}

type CorrelationRequest struct {
	N  int    `query:"n" json:"n" default:"200" validate:"gte=3,lte=5000"`
	TF string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 1d"`
}

type RefreshRequest struct {
	UserID string `query:"user_id" json:"user_id"`
	Table  string `query:"table" json:"table" validate:"omitempty,oneof=market_data holdings trading_signals prediction_markets system_health assets"`
}
