package postgres

import "time"

// FusedRecord is one fused row of an asset's dataset.
type FusedRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Coin      string    `gorm:"type:varchar(20);not null;index:idx_fused_coin_bar_ts,unique"`
	Bar       string    `gorm:"type:varchar(10);not null;index:idx_fused_coin_bar_ts,unique"`
	Timestamp time.Time `gorm:"not null;index:idx_fused_coin_bar_ts,unique"`

	Open   float64 `gorm:"type:numeric;not null"`
	High   float64 `gorm:"type:numeric;not null"`
	Low    float64 `gorm:"type:numeric;not null"`
	Close  float64 `gorm:"type:numeric;not null"`
	Volume float64 `gorm:"type:numeric;not null"`

	FundingRate  float64 `gorm:"type:numeric;not null;default:0"`
	OpenInterest float64 `gorm:"type:numeric;not null;default:0"`

	Provider   string    `gorm:"type:varchar(20);not null"`
	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (FusedRecord) TableName() string {
	return "fused_record"
}

// CandleRecord is a candle-only row, used for the daily context series.
type CandleRecord struct {
	ID uint `gorm:"primaryKey"`

	Coin      string    `gorm:"type:varchar(20);not null;index:idx_candle_coin_bar_ts,unique"`
	Bar       string    `gorm:"type:varchar(10);not null;index:idx_candle_coin_bar_ts,unique"`
	Timestamp time.Time `gorm:"not null;index:idx_candle_coin_bar_ts,unique"`

	Open   float64 `gorm:"type:numeric;not null"`
	High   float64 `gorm:"type:numeric;not null"`
	Low    float64 `gorm:"type:numeric;not null"`
	Close  float64 `gorm:"type:numeric;not null"`
	Volume float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (CandleRecord) TableName() string {
	return "candle_record"
}
