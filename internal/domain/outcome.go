package domain

import "time"

// NormalizedOutcome is the fully computed swap outcome handed to rendering and publishing.
// Built once per MatchedOrder and never mutated afterwards.
type NormalizedOutcome struct {
	OrderID          string `json:"create_order_id"`
	SourceChain      string `json:"source_chain"`
	DestinationChain string `json:"destination_chain"`
	SourceAsset      string `json:"source_asset"`
	DestinationAsset string `json:"destination_asset"`

	SourceAmount          float64 `json:"source_amount"`      // real quantity
	DestinationAmount     float64 `json:"destination_amount"` // real quantity
	SourceSwapAmount      string  `json:"source_swap_amount"` // minor units, as reported
	DestinationSwapAmount string  `json:"destination_swap_amount"`
	InputTokenPrice       float64 `json:"input_token_price"`
	OutputTokenPrice      float64 `json:"output_token_price"`

	VolumeUSD         float64 `json:"volume"`
	GardenFeeUSD      float64 `json:"garden_fee"`
	GardenTimeSeconds float64 `json:"garden_time_seconds"`

	FeeSavedUSD              float64  `json:"fee_saved"`
	TimeSavedSeconds         float64  `json:"time_saved_seconds"`
	TimeSavedDisplay         string   `json:"time_saved"`
	CompetitorMaxFeeUSD      float64  `json:"competitor_max_fee"`
	CompetitorMaxTimeSeconds float64  `json:"competitor_max_time_seconds"`
	CompetitorMaxFeeDisplay  string   `json:"total_amount_others_max"`
	CompetitorMaxTimeDisplay string   `json:"total_time_of_others_max"`
	MaxFeeProvider           Provider `json:"max_fee_provider,omitempty"`
	MaxTimeProvider          Provider `json:"max_time_provider,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	Timestamp string    `json:"timestamp"` // RFC3339 rendering of CreatedAt
}

// HasSavings reports whether the outcome shows a positive fee saving.
// Publishers discard outcomes without one.
func (o *NormalizedOutcome) HasSavings() bool {
	return o.FeeSavedUSD > 0
}
