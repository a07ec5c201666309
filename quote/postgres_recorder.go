package quote

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
)

// PostgresRecorder writes the request and its quotes in one transaction.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Name() string {
	return "postgres"
}

func (r *PostgresRecorder) Record(ctx context.Context, rec Record) (err error) {
	contact, err := json.Marshal(rec.Request.ContactDetails)
	if err != nil {
		return fmt.Errorf("failed to encode contact details: %w", err)
	}
	business, err := json.Marshal(rec.Request.BusinessDetails)
	if err != nil {
		return fmt.Errorf("failed to encode business details: %w", err)
	}
	answers, err := json.Marshal(rec.Request.UnderwritingAnswers)
	if err != nil {
		return fmt.Errorf("failed to encode underwriting answers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quote_requests (id, insurance_type, contact_details, business_details,
			underwriting_answers, valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.RequestID, string(rec.Request.InsuranceType), contact, business, answers, rec.ValidUntil, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert quote request: %w", err)
	}

	for _, q := range rec.Quotes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO quotes (quote_request_id, product_id, insurer_id, monthly_premium,
				annual_premium, coverage_amount, deductible, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, rec.RequestID, q.ProductID, q.InsurerID, q.MonthlyAmount, q.AnnualAmount,
			q.CoverageAmount, q.Deductible, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert quote for product %s: %w", q.ProductID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quotes: %w", err)
	}
	return nil
}
