package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusRented      VehicleStatus = "rented"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusHidden      VehicleStatus = "hidden"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusRented, VehicleStatusMaintenance, VehicleStatusHidden:
		return true
	}
	return false
}

// ShopControlled reports whether the status was set by the shop rather than
// derived from the vehicle's bookings.
func (s VehicleStatus) ShopControlled() bool {
	return s == VehicleStatusMaintenance || s == VehicleStatusHidden
}

type Vehicle struct {
	ID            int64           `json:"id"`
	ShopID        int64           `json:"shop_id"`
	Brand         string          `json:"brand"`
	Model         string          `json:"model"`
	DailyRate     decimal.Decimal `json:"daily_rate"`
	InsuranceRate decimal.Decimal `json:"insurance_rate"`
	Status        VehicleStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (v *Vehicle) DisplayName() string {
	if v.Brand == "" && v.Model == "" {
		return "vehicle"
	}
	if v.Model == "" {
		return v.Brand
	}
	if v.Brand == "" {
		return v.Model
	}
	return v.Brand + " " + v.Model
}
