package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/procureflow/procureflow/internal/domain"
)

// RFPRepo persists RFPs and their cached comparison.
type RFPRepo struct{ Pool PgxPool }

// NewRFPRepo constructs an RFPRepo with the given pool.
func NewRFPRepo(p PgxPool) *RFPRepo { return &RFPRepo{Pool: p} }

const rfpColumns = `id, title, description, budget, deadline, requirements,
payment_terms, warranty_req, delivery_terms, status, comparison, compared_at,
created_at, updated_at`

// Create inserts a new RFP and returns the stored row.
func (r *RFPRepo) Create(ctx domain.Context, in domain.RFP) (domain.RFP, error) {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.Create")
	defer span.End()

	reqs, err := jsonParam(in.Requirements)
	if err != nil {
		return domain.RFP{}, err
	}
	q := `INSERT INTO rfps (title, description, budget, deadline, requirements, payment_terms, warranty_req, delivery_terms, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING ` + rfpColumns
	row := r.Pool.QueryRow(ctx, q,
		in.Title, in.Description, in.Budget, in.Deadline, reqs,
		in.PaymentTerms, in.WarrantyReq, in.DeliveryTerms, in.Status)
	out, err := scanRFP(row)
	if err != nil {
		return domain.RFP{}, fmt.Errorf("op=rfp.create: %w", err)
	}
	return out, nil
}

// List returns all RFPs, newest first.
func (r *RFPRepo) List(ctx domain.Context) ([]domain.RFP, error) {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.List")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT `+rfpColumns+` FROM rfps ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("op=rfp.list: %w", err)
	}
	defer rows.Close()

	var out []domain.RFP
	for rows.Next() {
		rfp, err := scanRFP(rows)
		if err != nil {
			return nil, fmt.Errorf("op=rfp.list scan: %w", err)
		}
		out = append(out, rfp)
	}
	return out, rows.Err()
}

// Get loads one RFP by id.
func (r *RFPRepo) Get(ctx domain.Context, id int64) (domain.RFP, error) {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.Get")
	defer span.End()

	row := r.Pool.QueryRow(ctx, `SELECT `+rfpColumns+` FROM rfps WHERE id=$1`, id)
	out, err := scanRFP(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RFP{}, fmt.Errorf("op=rfp.get: %w", domain.ErrNotFound)
		}
		return domain.RFP{}, fmt.Errorf("op=rfp.get: %w", err)
	}
	return out, nil
}

// Update rewrites an RFP's editable fields and returns the stored row.
func (r *RFPRepo) Update(ctx domain.Context, in domain.RFP) (domain.RFP, error) {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.Update")
	defer span.End()

	reqs, err := jsonParam(in.Requirements)
	if err != nil {
		return domain.RFP{}, err
	}
	q := `UPDATE rfps SET title=$2, description=$3, budget=$4, deadline=$5, requirements=$6,
payment_terms=$7, warranty_req=$8, delivery_terms=$9, status=$10, updated_at=now()
WHERE id=$1
RETURNING ` + rfpColumns
	row := r.Pool.QueryRow(ctx, q,
		in.ID, in.Title, in.Description, in.Budget, in.Deadline, reqs,
		in.PaymentTerms, in.WarrantyReq, in.DeliveryTerms, in.Status)
	out, err := scanRFP(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RFP{}, fmt.Errorf("op=rfp.update: %w", domain.ErrNotFound)
		}
		return domain.RFP{}, fmt.Errorf("op=rfp.update: %w", err)
	}
	return out, nil
}

// Delete removes an RFP; proposals cascade at the schema level.
func (r *RFPRepo) Delete(ctx domain.Context, id int64) error {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.Delete")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `DELETE FROM rfps WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=rfp.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=rfp.delete: %w", domain.ErrNotFound)
	}
	return nil
}

// SetStatus moves an RFP through its lifecycle.
func (r *RFPRepo) SetStatus(ctx domain.Context, id int64, status domain.RFPStatus) error {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.SetStatus")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `UPDATE rfps SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("op=rfp.set_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=rfp.set_status: %w", domain.ErrNotFound)
	}
	return nil
}

// SaveComparison stores the cached comparison together with its timestamp.
func (r *RFPRepo) SaveComparison(ctx domain.Context, id int64, res domain.ComparisonResult, at time.Time) error {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.SaveComparison")
	defer span.End()

	payload, err := jsonParam(res)
	if err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE rfps SET comparison=$2, compared_at=$3 WHERE id=$1`, id, payload, at.UTC())
	if err != nil {
		return fmt.Errorf("op=rfp.save_comparison: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=rfp.save_comparison: %w", domain.ErrNotFound)
	}
	return nil
}

// ClearComparison drops the cached comparison and its timestamp together.
func (r *RFPRepo) ClearComparison(ctx domain.Context, id int64) error {
	tracer := otel.Tracer("repo.rfps")
	ctx, span := tracer.Start(ctx, "rfps.ClearComparison")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE rfps SET comparison=NULL, compared_at=NULL WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=rfp.clear_comparison: %w", err)
	}
	return nil
}

func scanRFP(row pgx.Row) (domain.RFP, error) {
	var (
		out       domain.RFP
		reqsRaw   []byte
		compRaw   []byte
	)
	if err := row.Scan(
		&out.ID, &out.Title, &out.Description, &out.Budget, &out.Deadline, &reqsRaw,
		&out.PaymentTerms, &out.WarrantyReq, &out.DeliveryTerms, &out.Status, &compRaw, &out.ComparedAt,
		&out.CreatedAt, &out.UpdatedAt,
	); err != nil {
		return domain.RFP{}, err
	}
	if err := jsonScan(reqsRaw, &out.Requirements); err != nil {
		return domain.RFP{}, err
	}
	if len(compRaw) > 0 {
		var res domain.ComparisonResult
		if err := jsonScan(compRaw, &res); err != nil {
			return domain.RFP{}, err
		}
		out.Comparison = &res
	}
	return out, nil
}
