package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"garden-volume-watch/internal/domain"
)

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Items      json.RawMessage `json:"items"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
	TotalItems int             `json:"total_items"`
}

type statusResult struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// DecodePage normalizes the shapes the orders endpoint has served:
// a bare array, a paginated envelope, and either of those under {status, result}.
func DecodePage(body []byte) (*Page, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPage)
	}

	if body[0] == '[' {
		orders, skipped, err := decodeOrders(body)
		if err != nil {
			return nil, err
		}
		return &Page{Orders: orders, TotalItems: len(orders) + len(skipped), Skipped: skipped}, nil
	}

	if body[0] != '{' {
		return nil, fmt.Errorf("%w: unexpected %q", ErrMalformedPage, body[0])
	}

	var sr statusResult
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	if sr.Status != "" && sr.Status != "Ok" && sr.Status != "ok" {
		return nil, fmt.Errorf("%w: status %s: %s", ErrMalformedPage, sr.Status, sr.Error)
	}
	if len(sr.Result) > 0 && !bytes.Equal(sr.Result, []byte("null")) {
		return DecodePage(sr.Result)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	raw := env.Data
	if len(raw) == 0 {
		raw = env.Items
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &Page{Page: env.Page, PerPage: env.PerPage, TotalPages: env.TotalPages, TotalItems: env.TotalItems}, nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] != '[' {
		return nil, fmt.Errorf("%w: data is not an array", ErrMalformedPage)
	}

	orders, skipped, err := decodeOrders(raw)
	if err != nil {
		return nil, err
	}
	return &Page{
		Orders:     orders,
		Skipped:    skipped,
		Page:       env.Page,
		PerPage:    env.PerPage,
		TotalPages: env.TotalPages,
		TotalItems: env.TotalItems,
	}, nil
}

// decodeOrders decodes a JSON array of orders one record at a time. Records
// that do not decode are reported in skipped instead of failing the page.
func decodeOrders(raw []byte) ([]domain.MatchedOrder, []SkippedRecord, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	orders := make([]domain.MatchedOrder, 0, len(items))
	var skipped []SkippedRecord
	for i, item := range items {
		var o domain.MatchedOrder
		if err := json.Unmarshal(item, &o); err != nil {
			skipped = append(skipped, SkippedRecord{Index: i, Err: err})
			continue
		}
		orders = append(orders, o)
	}
	return orders, skipped, nil
}
