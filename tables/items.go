package tables

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is the canonical decoded form of one entry in an order's
// serialized items column. Source rows were written by several clients over
// time, so numeric fields may arrive as JSON numbers or as quoted strings;
// decoding coerces either form and degrades anything unreadable to zero.
type LineItem struct {
	ProductID uint            `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID json.RawMessage `json:"productId"`
		Name      string          `json:"name"`
		UnitPrice json.RawMessage `json:"unitPrice"`
		Quantity  json.RawMessage `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	li.ProductID = uint(coerceInt(raw.ProductID))
	li.Name = raw.Name
	li.UnitPrice = coerceDecimal(raw.UnitPrice)
	li.Quantity = int(coerceInt(raw.Quantity))
	return nil
}

// Subtotal returns unit price times quantity for this line.
func (li LineItem) Subtotal() decimal.Decimal {
	if li.Quantity <= 0 {
		return decimal.Zero
	}
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ParseItems decodes a serialized items column. A nil, empty or malformed
// payload yields an empty slice, never an error: one corrupt row must not
// poison a whole listing.
func ParseItems(raw []byte) []LineItem {
	if len(raw) == 0 {
		return []LineItem{}
	}
	var items []LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return []LineItem{}
	}
	return items
}

// coerceDecimal reads a JSON number or quoted numeric string. Anything else
// (missing, null, garbage) is zero.
func coerceDecimal(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// coerceInt reads a JSON integer, float or quoted numeric string as int64.
func coerceInt(raw json.RawMessage) int64 {
	d := coerceDecimal(raw)
	return d.IntPart()
}
