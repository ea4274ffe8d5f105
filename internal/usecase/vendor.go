package usecase

import (
	"fmt"
	"strings"

	"github.com/procureflow/procureflow/internal/domain"
)

// VendorService manages the vendor registry.
type VendorService struct {
	vendors domain.VendorRepository
}

// NewVendorService constructs a VendorService.
func NewVendorService(vendors domain.VendorRepository) VendorService {
	return VendorService{vendors: vendors}
}

// Create registers a vendor. A duplicate email surfaces as ErrConflict from
// the repository.
func (s VendorService) Create(ctx domain.Context, v domain.Vendor) (domain.Vendor, error) {
	if err := validateVendor(v); err != nil {
		return domain.Vendor{}, err
	}
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))
	return s.vendors.Create(ctx, v)
}

// List returns all vendors.
func (s VendorService) List(ctx domain.Context) ([]domain.Vendor, error) {
	return s.vendors.List(ctx)
}

// Get returns one vendor by ID.
func (s VendorService) Get(ctx domain.Context, id int64) (domain.Vendor, error) {
	return s.vendors.Get(ctx, id)
}

// Update applies field changes to an existing vendor.
func (s VendorService) Update(ctx domain.Context, v domain.Vendor) (domain.Vendor, error) {
	if err := validateVendor(v); err != nil {
		return domain.Vendor{}, err
	}
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))
	return s.vendors.Update(ctx, v)
}

// Delete removes a vendor.
func (s VendorService) Delete(ctx domain.Context, id int64) error {
	return s.vendors.Delete(ctx, id)
}

func validateVendor(v domain.Vendor) error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: vendor name is required", domain.ErrInvalidArgument)
	}
	email := strings.TrimSpace(v.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid vendor email is required", domain.ErrInvalidArgument)
	}
	return nil
}
