package domain

import (
	"math"
	"time"
)

// MaxTotalTickets bounds the configurable pool; ticket codes are
// 5-digit decimal strings so the pool can never exceed 99999.
const MaxTotalTickets = 99999

// DefaultAdminCPF is seeded into a fresh store so at least one
// administrator exists.
const DefaultAdminCPF = "45235958870"

// RaffleStats is the derived view of the single raffle configuration record.
type RaffleStats struct {
	TotalTickets     int     `json:"totalTickets"`
	SoldTickets      int     `json:"soldTickets"`
	RemainingTickets int     `json:"remainingTickets"`
	ProgressPercent  float64 `json:"progressPercent"`
}

// NewRaffleStats derives the stats from a pool bound and a sold count,
// clamping the bound into [1, MaxTotalTickets] the way the stored
// record is clamped on read.
func NewRaffleStats(totalTickets, soldTickets int) RaffleStats {
	if totalTickets < 1 {
		totalTickets = 1
	}
	if totalTickets > MaxTotalTickets {
		totalTickets = MaxTotalTickets
	}

	remaining := totalTickets - soldTickets
	if remaining < 0 {
		remaining = 0
	}

	return RaffleStats{
		TotalTickets:     totalTickets,
		SoldTickets:      soldTickets,
		RemainingTickets: remaining,
		ProgressPercent:  Round2(float64(soldTickets) / float64(totalTickets) * 100),
	}
}

// AvailabilitySample is a non-authoritative snapshot for the admin
// ticket-status screen.
type AvailabilitySample struct {
	RaffleStats
	SoldTicketsSample      []string  `json:"soldTicketsSample"`
	AvailableTicketsSample []string  `json:"availableTicketsSample"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// Round2 rounds to two decimal places, matching the money precision
// used everywhere in the charge flow.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
