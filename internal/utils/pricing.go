package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OverridePolicy bounds how far a client-supplied total may drift from the
// computed price.
type OverridePolicy struct {
	TolerancePercent decimal.Decimal
	// Enforce refuses out-of-tolerance totals instead of flagging them.
	Enforce bool
}

// Quote is the priced result of a booking request.
type Quote struct {
	Days             int
	Computed         decimal.Decimal
	Total            decimal.Decimal
	Overridden       bool
	Flagged          bool
	DeviationPercent decimal.Decimal
}

// ParseDate converts a yyyy-mm-dd formatted string into a UTC calendar date
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd: %q", dateStr)
	}
	return t, nil
}

// RentalDays returns the number of billable days between two dates, rounding
// partial days up and charging at least one day.
func RentalDays(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, domain.InvalidInput("end date %s is before start date %s",
			end.Format(domain.DateLayout), start.Format(domain.DateLayout))
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days, nil
}

// ComputeTotal prices a rental as days x (daily rate + insurance rate). A
// positive client total replaces the computed amount; totals outside the
// policy tolerance are flagged, or refused when the policy enforces it.
// Client totals that are not numbers or not positive are ignored.
func ComputeTotal(dailyRate, insuranceRate decimal.Decimal, start, end time.Time, clientTotal string, policy OverridePolicy) (Quote, error) {
	if dailyRate.IsNegative() || insuranceRate.IsNegative() {
		return Quote{}, fmt.Errorf("%w: rates must not be negative", domain.ErrInvalidAmount)
	}

	days, err := RentalDays(start, end)
	if err != nil {
		return Quote{}, err
	}

	computed := dailyRate.Add(insuranceRate).Mul(decimal.NewFromInt(int64(days))).Round(2)
	q := Quote{Days: days, Computed: computed, Total: computed}

	if raw := strings.TrimSpace(clientTotal); raw != "" {
		supplied, err := decimal.NewFromString(raw)
		if err != nil {
			logger.Warn("Ignoring client total that is not a number", "total", clientTotal, "computed", computed.StringFixed(2))
			supplied = decimal.Zero
		}
		if supplied.IsPositive() {
			if !supplied.Equal(supplied.Round(2)) {
				return Quote{}, domain.InvalidInput("total %s has more than two decimal places", supplied.String())
			}
			q.Total = supplied
			q.Overridden = !supplied.Equal(computed)
			q.DeviationPercent = deviationPercent(computed, supplied)
			if q.DeviationPercent.GreaterThan(policy.TolerancePercent) {
				if policy.Enforce {
					return Quote{}, fmt.Errorf("%w: total %s deviates %s%% from computed %s",
						domain.ErrInvalidAmount, supplied.StringFixed(2), q.DeviationPercent.StringFixed(2), computed.StringFixed(2))
				}
				q.Flagged = true
			}
		}
	}

	if !q.Total.IsPositive() {
		return Quote{}, fmt.Errorf("%w: total must be positive", domain.ErrInvalidAmount)
	}
	return q, nil
}

func deviationPercent(computed, supplied decimal.Decimal) decimal.Decimal {
	if computed.IsZero() {
		return hundred
	}
	return supplied.Sub(computed).Abs().Div(computed).Mul(hundred).Round(2)
}
