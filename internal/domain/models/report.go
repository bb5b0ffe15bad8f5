package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grouping selects the calendar bucket for transaction summaries
type Grouping string

const (
	GroupingDaily   Grouping = "daily"
	GroupingWeekly  Grouping = "weekly"
	GroupingMonthly Grouping = "monthly"
)

// Valid reports whether the grouping is one of the supported buckets
func (g Grouping) Valid() bool {
	switch g {
	case GroupingDaily, GroupingWeekly, GroupingMonthly:
		return true
	}
	return false
}

// PeriodSummary is one row of a transaction volume report
type PeriodSummary struct {
	Period         time.Time // start of the calendar bucket, UTC
	TotalAmount    decimal.Decimal
	AvgAmount      decimal.Decimal
	SuccessRatePct decimal.Decimal
	Count          int64
	SuccessCount   int64
	DeclinedCount  int64
}
