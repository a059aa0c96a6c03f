package memory

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/NinePK/back-car/internal/domain"
)

type seedVehicle struct {
	ShopID        int64  `yaml:"shop_id"`
	Brand         string `yaml:"brand"`
	Model         string `yaml:"model"`
	DailyRate     string `yaml:"daily_rate"`
	InsuranceRate string `yaml:"insurance_rate"`
}

type seedContact struct {
	UserID   int64  `yaml:"user_id"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	ShopName string `yaml:"shop_name"`
}

type seedFile struct {
	Vehicles []seedVehicle `yaml:"vehicles"`
	Contacts []seedContact `yaml:"contacts"`
}

// LoadSeed reads a YAML file of vehicles and contacts into the store.
func (s *Store) LoadSeed(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}
	return s.Seed(ctx, data)
}

// Seed loads vehicles and contacts from YAML and returns the number of
// vehicles created.
func (s *Store) Seed(ctx context.Context, data []byte) (int, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parsing seed file: %w", err)
	}

	for _, c := range f.Contacts {
		s.PutContact(domain.Contact{UserID: c.UserID, Username: c.Username, Email: c.Email, ShopName: c.ShopName})
	}

	for i, sv := range f.Vehicles {
		rate, err := decimal.NewFromString(sv.DailyRate)
		if err != nil {
			return i, fmt.Errorf("vehicle %d: daily_rate: %w", i, err)
		}
		insurance := decimal.Zero
		if sv.InsuranceRate != "" {
			if insurance, err = decimal.NewFromString(sv.InsuranceRate); err != nil {
				return i, fmt.Errorf("vehicle %d: insurance_rate: %w", i, err)
			}
		}
		v := &domain.Vehicle{
			ShopID:        sv.ShopID,
			Brand:         sv.Brand,
			Model:         sv.Model,
			DailyRate:     rate,
			InsuranceRate: insurance,
		}
		if err := s.Vehicles().Create(ctx, v); err != nil {
			return i, err
		}
	}
	return len(f.Vehicles), nil
}
