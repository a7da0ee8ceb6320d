package domain

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TimestampLayout ISO-8601 with millisecond precision, the format used on the wire and on disk.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// NormalizeTime converts t to UTC with millisecond precision.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return NormalizeTime(t).Format(TimestampLayout)
}

// ParseTimestamp parses any RFC 3339 timestamp and normalizes it.
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse timestamp %q", raw)
	}
	return NormalizeTime(t), nil
}

// PricePoint single observed price.
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// NewPricePoint creates a PricePoint with a normalized timestamp.
func NewPricePoint(ts time.Time, price decimal.Decimal) PricePoint {
	return PricePoint{Timestamp: NormalizeTime(ts), Price: price}
}

// Rate price of a symbol at a timestamp, either present or absent.
type Rate struct {
	price   decimal.Decimal
	present bool
}

// Present wraps an observed price.
func Present(price decimal.Decimal) Rate {
	return Rate{price: price, present: true}
}

// Absent marks a missing observation.
func Absent() Rate {
	return Rate{}
}

// Price returns the price and whether it is present.
func (r Rate) Price() (decimal.Decimal, bool) {
	return r.price, r.present
}

// IsPresent reports whether the rate carries a price.
func (r Rate) IsPresent() bool {
	return r.present
}

// MarshalJSON renders a number or null.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.present {
		return []byte("null"), nil
	}
	return []byte(r.price.String()), nil
}

// UnmarshalJSON accepts a number, a quoted number or null.
func (r *Rate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Absent()
		return nil
	}

	var price decimal.Decimal
	if err := price.UnmarshalJSON(data); err != nil {
		return errors.Wrap(err, "decode rate")
	}
	*r = Present(price)
	return nil
}
