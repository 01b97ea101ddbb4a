package models

import "strings"

// AssetType classifies an instrument for grouping and chart colouring.
type AssetType string

const (
	AssetCrypto AssetType = "crypto"
	AssetStock  AssetType = "stock"
)

// UnknownText is substituted for missing names, symbols and messages.
const UnknownText = "Unknown"

// DefaultCurrency is used for assets synthesized from an unresolved ticker.
const DefaultCurrency = "GBP"

// ParseAssetType matches "crypto"/"stock" case-insensitively.
func ParseAssetType(s string) (AssetType, bool) {
	switch AssetType(strings.ToLower(strings.TrimSpace(s))) {
	case AssetCrypto:
		return AssetCrypto, true
	case AssetStock:
		return AssetStock, true
	default:
		return "", false
	}
}

// Asset is immutable reference data shared by quotes, holdings and signals.
type Asset struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Symbol   string    `json:"symbol"`
	Type     AssetType `json:"type"`
	Currency string    `json:"currency"`
}

// PlaceholderAsset builds the asset used when a holding's ticker has no match.
func PlaceholderAsset(ticker string) Asset {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		t = UnknownText
	}
	return Asset{
		Name:     t,
		Symbol:   t,
		Type:     AssetStock,
		Currency: DefaultCurrency,
	}
}
