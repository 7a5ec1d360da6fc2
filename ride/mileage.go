package ride

import (
	"errors"

	"github.com/brightpath/shift-engine/care"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MILEAGE - Per-kilometre reimbursement for completed rides
// =============================================================================

var ErrRideNotEnded = errors.New("ride not ended")

// ReimbursementPolicy converts filtered ride distance into money.
// Money is decimal; distances stay float64.
type ReimbursementPolicy struct {
	RatePerKM decimal.Decimal
	Currency  string
}

// DefaultReimbursement is the agency's standard per-km rate.
func DefaultReimbursement() ReimbursementPolicy {
	return ReimbursementPolicy{
		RatePerKM: decimal.NewFromFloat(0.52),
		Currency:  "USD",
	}
}

// Amount returns the reimbursement for a ride distance, rounded to cents.
func (p ReimbursementPolicy) Amount(distanceKM float64) decimal.Decimal {
	return decimal.NewFromFloat(distanceKM).Mul(p.RatePerKM).Round(2)
}

// MileageReport summarises a finished ride for reimbursement.
type MileageReport struct {
	ShiftID    care.ShiftID
	StaffID    care.StaffID
	DistanceKM float64
	Amount     decimal.Decimal
	Currency   string
}

// BuildMileageReport computes reimbursement for a shift whose ride ended.
func BuildMileageReport(s care.Shift, p ReimbursementPolicy) (MileageReport, error) {
	if s.Category != care.CategoryTransportation || s.Transport == nil {
		return MileageReport{}, ErrNotTransportation
	}
	if !s.Transport.RideEnded {
		return MileageReport{}, ErrRideNotEnded
	}
	return MileageReport{
		ShiftID:    s.ID,
		StaffID:    s.StaffID,
		DistanceKM: s.Transport.DistanceKM,
		Amount:     p.Amount(s.Transport.DistanceKM),
		Currency:   p.Currency,
	}, nil
}
