package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/procureflow/procureflow/internal/domain"
)

// VendorRepo persists vendors. A duplicate email violates the unique
// constraint and surfaces as domain.ErrConflict.
type VendorRepo struct{ Pool PgxPool }

// NewVendorRepo constructs a VendorRepo with the given pool.
func NewVendorRepo(p PgxPool) *VendorRepo { return &VendorRepo{Pool: p} }

const vendorColumns = `id, name, email, company, created_at, updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

func mapVendorErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("op=%s: vendor email already registered: %w", op, domain.ErrConflict)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("op=%s: %w", op, err)
}

// Create inserts a vendor and returns the stored row.
func (r *VendorRepo) Create(ctx domain.Context, in domain.Vendor) (domain.Vendor, error) {
	tracer := otel.Tracer("repo.vendors")
	ctx, span := tracer.Start(ctx, "vendors.Create")
	defer span.End()

	q := `INSERT INTO vendors (name, email, company) VALUES ($1,$2,$3) RETURNING ` + vendorColumns
	row := r.Pool.QueryRow(ctx, q, in.Name, in.Email, in.Company)
	var out domain.Vendor
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Company, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Vendor{}, mapVendorErr("vendor.create", err)
	}
	return out, nil
}

// List returns all vendors ordered by name.
func (r *VendorRepo) List(ctx domain.Context) ([]domain.Vendor, error) {
	tracer := otel.Tracer("repo.vendors")
	ctx, span := tracer.Start(ctx, "vendors.List")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("op=vendor.list: %w", err)
	}
	defer rows.Close()

	var out []domain.Vendor
	for rows.Next() {
		var v domain.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Company, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=vendor.list scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Get loads one vendor by id.
func (r *VendorRepo) Get(ctx domain.Context, id int64) (domain.Vendor, error) {
	tracer := otel.Tracer("repo.vendors")
	ctx, span := tracer.Start(ctx, "vendors.Get")
	defer span.End()

	row := r.Pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, id)
	var out domain.Vendor
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Company, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Vendor{}, mapVendorErr("vendor.get", err)
	}
	return out, nil
}

// Update rewrites a vendor's fields and returns the stored row.
func (r *VendorRepo) Update(ctx domain.Context, in domain.Vendor) (domain.Vendor, error) {
	tracer := otel.Tracer("repo.vendors")
	ctx, span := tracer.Start(ctx, "vendors.Update")
	defer span.End()

	q := `UPDATE vendors SET name=$2, email=$3, company=$4, updated_at=now() WHERE id=$1 RETURNING ` + vendorColumns
	row := r.Pool.QueryRow(ctx, q, in.ID, in.Name, in.Email, in.Company)
	var out domain.Vendor
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Company, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Vendor{}, mapVendorErr("vendor.update", err)
	}
	return out, nil
}

// Delete removes a vendor.
func (r *VendorRepo) Delete(ctx domain.Context, id int64) error {
	tracer := otel.Tracer("repo.vendors")
	ctx, span := tracer.Start(ctx, "vendors.Delete")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `DELETE FROM vendors WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=vendor.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=vendor.delete: %w", domain.ErrNotFound)
	}
	return nil
}

// FindByAddress resolves a vendor whose stored email case-insensitively
// contains the given sender address.
func (r *VendorRepo) FindByAddress(ctx domain.Context, address string) (domain.Vendor, error) {
	tracer := otel.Tracer("repo.vendors")
	ctx, span := tracer.Start(ctx, "vendors.FindByAddress")
	defer span.End()

	q := `SELECT ` + vendorColumns + ` FROM vendors WHERE position(lower($1) IN lower(email)) > 0 LIMIT 1`
	row := r.Pool.QueryRow(ctx, q, address)
	var out domain.Vendor
	if err := row.Scan(&out.ID, &out.Name, &out.Email, &out.Company, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return domain.Vendor{}, mapVendorErr("vendor.find_by_address", err)
	}
	return out, nil
}
