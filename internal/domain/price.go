package domain

import "time"

// PriceTick is a single real-time price observation. Append-only; late
// out-of-order arrivals are tolerated and must not corrupt resolution.
type PriceTick struct {
	AssetID int64     `json:"asset_id"`
	Price   float64   `json:"price"`
	Time    time.Time `json:"ts"`
}

// Candle is one OHLCV bucket for an asset. One row per (asset, bucket
// start); append-only.
type Candle struct {
	AssetID  int64     `json:"asset_id"`
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}
