package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on the products and rating_factors tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed catalog.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const productColumns = `id, insurer_id, insurer_name, insurance_type, base_premium, default_coverage,
		default_deductible, features, rating, is_recommended, is_active, created_at, updated_at`

func (s *PostgresStore) AddProduct(ctx context.Context, p *rating.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.InsurerID, p.InsurerName, p.InsuranceType, p.BasePremium, p.DefaultCoverage,
		p.DefaultDeductible, pq.Array(p.Features), p.Rating, p.IsRecommended, p.IsActive,
		p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %s: %w", p.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (rating.Product, error) {
	var p rating.Product
	var typ string
	err := row.Scan(&p.ID, &p.InsurerID, &p.InsurerName, &typ, &p.BasePremium, &p.DefaultCoverage,
		&p.DefaultDeductible, pq.Array(&p.Features), &p.Rating, &p.IsRecommended, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	p.InsuranceType = insurance.InsuranceType(typ)
	if p.Features == nil {
		p.Features = []string{}
	}
	return p, err
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*rating.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListActiveProducts(ctx context.Context, typ insurance.InsuranceType) ([]rating.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE insurance_type = $1 AND is_active = true
		ORDER BY created_at ASC, id ASC
	`, string(typ))
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}
	defer rows.Close()

	products := []rating.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

const factorColumns = `id, insurance_type, factor_name, factor_type, factor_value, condition_field,
		condition_operator, condition_value, apply_order, is_active, created_at, updated_at`

func (s *PostgresStore) AddFactor(ctx context.Context, f *rating.RatingFactor) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	condition, err := json.Marshal(f.ConditionValue)
	if err != nil {
		return fmt.Errorf("failed to encode condition value: %w", err)
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rating_factors (`+factorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, f.ID, f.InsuranceType, f.FactorName, f.FactorType, f.FactorValue, f.ConditionField,
		f.ConditionOperator, condition, f.ApplyOrder, f.IsActive, f.CreatedAt, f.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("rating factor %s: %w", f.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert rating factor: %w", err)
	}
	return nil
}

func scanFactor(row scanner) (rating.RatingFactor, error) {
	var f rating.RatingFactor
	var typ, factorType, operator string
	var condition []byte
	if err := row.Scan(&f.ID, &typ, &f.FactorName, &factorType, &f.FactorValue, &f.ConditionField,
		&operator, &condition, &f.ApplyOrder, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return f, err
	}
	f.InsuranceType = insurance.InsuranceType(typ)
	f.FactorType = rating.FactorType(factorType)
	f.ConditionOperator = rating.Operator(operator)
	if len(condition) > 0 {
		if err := json.Unmarshal(condition, &f.ConditionValue); err != nil {
			return f, fmt.Errorf("factor %s: %w", f.ID, err)
		}
	}
	return f, nil
}

func (s *PostgresStore) GetFactor(ctx context.Context, id string) (*rating.RatingFactor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+factorColumns+` FROM rating_factors WHERE id = $1`, id)

	f, err := scanFactor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rating factor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating factor: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) UpdateFactor(ctx context.Context, f *rating.RatingFactor) error {
	if err := f.Validate(); err != nil {
		return err
	}
	condition, err := json.Marshal(f.ConditionValue)
	if err != nil {
		return fmt.Errorf("failed to encode condition value: %w", err)
	}
	f.UpdatedAt = time.Now().UTC()

	err = s.db.QueryRowContext(ctx, `
		UPDATE rating_factors
		SET insurance_type = $1, factor_name = $2, factor_type = $3, factor_value = $4,
			condition_field = $5, condition_operator = $6, condition_value = $7,
			apply_order = $8, is_active = $9, updated_at = $10
		WHERE id = $11
		RETURNING created_at
	`, f.InsuranceType, f.FactorName, f.FactorType, f.FactorValue, f.ConditionField,
		f.ConditionOperator, condition, f.ApplyOrder, f.IsActive, f.UpdatedAt, f.ID).Scan(&f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rating factor %s: %w", f.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update rating factor: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteFactor(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rating_factors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rating factor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rating factor %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListActiveFactors(ctx context.Context, typ insurance.InsuranceType) ([]rating.RatingFactor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+factorColumns+`
		FROM rating_factors
		WHERE insurance_type = $1 AND is_active = true
		ORDER BY apply_order ASC, created_at ASC, id ASC
	`, string(typ))
	if err != nil {
		return nil, fmt.Errorf("failed to list active rating factors: %w", err)
	}
	defer rows.Close()

	factors := []rating.RatingFactor{}
	for rows.Next() {
		f, err := scanFactor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating factor: %w", err)
		}
		factors = append(factors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating factors: %w", err)
	}
	return factors, nil
}
