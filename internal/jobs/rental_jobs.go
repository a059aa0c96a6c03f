package jobs

import (
	"context"

	"github.com/NinePK/back-car/internal/logger"
)

const flaggedReportLimit = 500

// ReconcileAvailability re-derives every vehicle's status from its active
// rentals and repairs any drift.
func (jr *JobRunner) ReconcileAvailability() {
	jr.runWithRecovery("ReconcileAvailability", func(ctx context.Context) error {
		report, err := jr.services.Availability.ReconcileAll(ctx)
		if err != nil {
			return err
		}
		logger.Info("Reconciled vehicle availability",
			"checked", report.Checked,
			"repaired", report.Repaired,
			"failed", report.Failed)
		return nil
	})
}

// ReportFlaggedPricing logs rentals whose client-supplied total deviated
// from the computed price, for manual review.
func (jr *JobRunner) ReportFlaggedPricing() {
	jr.runWithRecovery("ReportFlaggedPricing", func(ctx context.Context) error {
		rentals, err := jr.services.Rental.ListPriceFlagged(ctx, flaggedReportLimit)
		if err != nil {
			return err
		}

		logger.Info("Rentals flagged for price review", "count", len(rentals))
		for _, rt := range rentals {
			logger.Warn("Price override flagged",
				"rental_id", rt.ID,
				"vehicle_id", rt.VehicleID,
				"customer_id", rt.CustomerID,
				"shop_id", rt.ShopID,
				"total_amount", rt.TotalAmount.StringFixed(2),
				"computed_amount", rt.ComputedAmount.StringFixed(2),
				"rental_status", rt.RentalStatus)
		}
		return nil
	})
}
