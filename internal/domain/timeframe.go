package domain

import (
	"time"

	"github.com/pkg/errors"
)

// Timeframe lookback window of a historical query.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

// TimeframeSpec lookback days and sampling granularity of a timeframe.
type TimeframeSpec struct {
	Days     int
	Interval string
}

var timeframes = map[Timeframe]TimeframeSpec{
	TimeframeDaily:   {Days: 1, Interval: "hourly"},
	TimeframeWeekly:  {Days: 7, Interval: "daily"},
	TimeframeMonthly: {Days: 30, Interval: "daily"},
}

// Timeframes lists valid timeframes in ascending window order.
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeDaily, TimeframeWeekly, TimeframeMonthly}
}

// ParseTimeframe validates raw timeframe input.
func ParseTimeframe(raw string) (Timeframe, error) {
	tf := Timeframe(raw)
	if !tf.IsValid() {
		return "", errors.Wrapf(ErrValidation, "invalid timeframe %q", raw)
	}
	return tf, nil
}

// String returns the string representation.
func (t Timeframe) String() string {
	return string(t)
}

// IsValid checks if the Timeframe value is valid.
func (t Timeframe) IsValid() bool {
	_, ok := timeframes[t]
	return ok
}

// Spec returns the static table entry. Unknown timeframes fall back to monthly.
func (t Timeframe) Spec() TimeframeSpec {
	if spec, ok := timeframes[t]; ok {
		return spec
	}
	return timeframes[TimeframeMonthly]
}

// Window returns the lookback duration.
func (t Timeframe) Window() time.Duration {
	return time.Duration(t.Spec().Days) * 24 * time.Hour
}
