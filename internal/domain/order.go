package domain

import (
	"encoding/json"
	"time"
)

// SwapLeg is one side of an atomic swap, as reported by the settlement feed.
type SwapLeg struct {
	SwapID         string    `json:"swap_id"`
	Chain          string    `json:"chain"`
	Asset          string    `json:"asset"`
	Initiator      string    `json:"initiator"`
	Redeemer       string    `json:"redeemer"`
	Amount         string    `json:"amount"`        // integer, minor units
	FilledAmount   string    `json:"filled_amount"` // integer, minor units
	SecretHash     string    `json:"secret_hash"`
	InitiateTxHash string    `json:"initiate_tx_hash"`
	RedeemTxHash   string    `json:"redeem_tx_hash"`
	RefundTxHash   string    `json:"refund_tx_hash"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Redeemed reports whether the leg completed.
func (l SwapLeg) Redeemed() bool {
	return l.RedeemTxHash != ""
}

// OrderAdditionalData carries pricing captured when the order was created.
type OrderAdditionalData struct {
	StrategyID       string  `json:"strategy_id"`
	InputTokenPrice  float64 `json:"input_token_price"`
	OutputTokenPrice float64 `json:"output_token_price"`
	TxHash           string  `json:"tx_hash,omitempty"`
	IsBlacklisted    bool    `json:"is_blacklisted"`
}

// CreateOrder is the user's order intent.
type CreateOrder struct {
	CreateID          string              `json:"create_id"`
	SourceChain       string              `json:"source_chain"`
	DestinationChain  string              `json:"destination_chain"`
	SourceAsset       string              `json:"source_asset"`
	DestinationAsset  string              `json:"destination_asset"`
	SourceAmount      string              `json:"source_amount"`
	DestinationAmount string              `json:"destination_amount"`
	Fee               json.Number         `json:"fee"`
	SecretHash        string              `json:"secret_hash"`
	AdditionalData    OrderAdditionalData `json:"additional_data"`
	CreatedAt         time.Time           `json:"created_at"`
}

// MatchedOrder is a settlement record: an order matched with its two swap legs.
// It is immutable input, fetched fresh each poll.
type MatchedOrder struct {
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	SourceSwap      SwapLeg     `json:"source_swap"`
	DestinationSwap SwapLeg     `json:"destination_swap"`
	CreateOrder     CreateOrder `json:"create_order"`
}

// OrderID returns the dedup token of the order.
func (o *MatchedOrder) OrderID() string {
	return o.CreateOrder.CreateID
}

// Completed reports whether both sides of the atomic swap were redeemed.
func (o *MatchedOrder) Completed() bool {
	return o.SourceSwap.Redeemed() && o.DestinationSwap.Redeemed()
}
