// Package domain defines the revenue aggregation contract: turning verified
// sessions and paid competition services into per-rider amounts for a period.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/period"
)

// RiderBreakdown is the amount one rider owes a trainer for a period.
type RiderBreakdown struct {
	RiderID                  snowflake.ID
	SessionsRevenueCents     int64
	CompetitionsRevenueCents int64
	// SessionCount counts only sessions that contributed revenue; sessions
	// whose type has no configured rate are skipped silently.
	SessionCount int
}

// TotalCents is the rider's combined owed amount.
func (b RiderBreakdown) TotalCents() int64 {
	return b.SessionsRevenueCents + b.CompetitionsRevenueCents
}

// Result aggregates a trainer's revenue for one billing period.
type Result struct {
	TrainerID snowflake.ID
	Period    period.Period
	// Currency is taken from the trainer's rate catalog; mixed-currency
	// catalogs are not reconciled, the first configured rate wins.
	Currency                 string
	SessionsRevenueCents     int64
	CompetitionsRevenueCents int64
	SessionCount             int
	PerRider                 map[snowflake.ID]*RiderBreakdown
}

// TotalCents is the trainer's combined revenue across riders.
func (r Result) TotalCents() int64 {
	return r.SessionsRevenueCents + r.CompetitionsRevenueCents
}

type Service interface {
	Compute(ctx context.Context, trainerID snowflake.ID, p period.Period) (*Result, error)
}
