package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"go.uber.org/zap"
)

const licenseColumns = `
	l.id, l.name, l.key, l.license_type, l.total_quantity, l.price,
	l.purchase_date, l.expiry_date, l.contract_date, l.notice_period_days,
	l.admin_name, l.description, l.payment_cycle, l.unit_price, l.currency,
	l.exchange_rate, l.is_vat_included, l.total_amount_foreign, l.total_amount_krw,
	l.renewal_cycle, l.cycle_months, l.first_purchased_at, l.last_renewed_at,
	l.renewal_date, l.created_at, l.updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func licenseScanTargets(l *models.License) []interface{} {
	return []interface{}{
		&l.ID, &l.Name, &l.Key, &l.LicenseType, &l.TotalQuantity, &l.Price,
		&l.PurchaseDate, &l.ExpiryDate, &l.ContractDate, &l.NoticePeriodDays,
		&l.AdminName, &l.Description, &l.PaymentCycle, &l.UnitPrice, &l.Currency,
		&l.ExchangeRate, &l.IsVatIncluded, &l.TotalAmountForeign, &l.TotalAmountKRW,
		&l.RenewalCycle, &l.CycleMonths, &l.FirstPurchasedAt, &l.LastRenewedAt,
		&l.RenewalDate, &l.CreatedAt, &l.UpdatedAt,
	}
}

func scanLicense(s rowScanner) (*models.License, error) {
	l := &models.License{}
	if err := s.Scan(licenseScanTargets(l)...); err != nil {
		return nil, err
	}
	return l, nil
}

// LicenseRepository implements the repositories.LicenseRepository interface
type LicenseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewLicenseRepository creates a new license repository
func NewLicenseRepository(db *DB, logger *zap.Logger) repositories.LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new license
func (r *LicenseRepository) Create(ctx context.Context, l *models.License) error {
	query := `
		INSERT INTO licenses (
			name, key, license_type, total_quantity, price, purchase_date, expiry_date,
			contract_date, notice_period_days, admin_name, description, payment_cycle,
			unit_price, currency, exchange_rate, is_vat_included, total_amount_foreign,
			total_amount_krw, renewal_cycle, cycle_months, first_purchased_at,
			last_renewed_at, renewal_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		l.Name, l.Key, l.LicenseType, l.TotalQuantity, l.Price, l.PurchaseDate, l.ExpiryDate,
		l.ContractDate, l.NoticePeriodDays, l.AdminName, l.Description, l.PaymentCycle,
		l.UnitPrice, l.Currency, l.ExchangeRate, l.IsVatIncluded, l.TotalAmountForeign,
		l.TotalAmountKRW, l.RenewalCycle, l.CycleMonths, l.FirstPurchasedAt,
		l.LastRenewedAt, l.RenewalDate, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return wrapWriteError("create license", err)
	}

	r.logger.Debug("license created", zap.Int64("id", l.ID), zap.String("name", l.Name))
	return nil
}

// GetByID retrieves a license by ID
func (r *LicenseRepository) GetByID(ctx context.Context, id int64) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses l WHERE l.id = $1`

	l, err := scanLicense(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapReadError("license", id, err)
	}
	return l, nil
}

// GetByIDForUpdate retrieves a license by ID and locks its row
func (r *LicenseRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses l WHERE l.id = $1 FOR UPDATE`

	l, err := scanLicense(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapReadError("license", id, err)
	}
	return l, nil
}

// GetByName retrieves a license by its unique name
func (r *LicenseRepository) GetByName(ctx context.Context, name string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses l WHERE l.name = $1`

	l, err := scanLicense(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, wrapReadError("license", name, err)
	}
	return l, nil
}

// FindByKeys returns licenses whose volume key is one of keys
func (r *LicenseRepository) FindByKeys(ctx context.Context, keys []string) (map[string]*models.License, error) {
	found := make(map[string]*models.License)
	if len(keys) == 0 {
		return found, nil
	}

	query := `SELECT ` + licenseColumns + ` FROM licenses l WHERE l.key = ANY($1)`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to query licenses by key: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		if l.Key != nil {
			found[*l.Key] = l
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating license rows: %w", err)
	}

	return found, nil
}

// List retrieves all licenses newest first with active assignment counts
func (r *LicenseRepository) List(ctx context.Context) ([]*models.LicenseSummary, error) {
	query := `
		SELECT ` + licenseColumns + `,
		       COALESCE(a.active, 0) AS assigned_quantity
		FROM licenses l
		LEFT JOIN (
			SELECT license_id, COUNT(*) AS active
			FROM assignments
			WHERE returned_date IS NULL
			GROUP BY license_id
		) a ON a.license_id = l.id
		ORDER BY l.created_at DESC, l.id DESC
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query licenses: %w", err)
	}
	defer rows.Close()

	var licenses []*models.LicenseSummary
	for rows.Next() {
		s := &models.LicenseSummary{}
		targets := append(licenseScanTargets(&s.License), &s.AssignedQuantity)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		s.RemainingQuantity = s.TotalQuantity - s.AssignedQuantity
		licenses = append(licenses, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating license rows: %w", err)
	}

	return licenses, nil
}

// ListAll retrieves every license ordered by id
func (r *LicenseRepository) ListAll(ctx context.Context) ([]*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses l ORDER BY l.id`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query licenses: %w", err)
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		licenses = append(licenses, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating license rows: %w", err)
	}

	return licenses, nil
}

// Update updates every mutable license column
func (r *LicenseRepository) Update(ctx context.Context, l *models.License) error {
	query := `
		UPDATE licenses
		SET name = $2, key = $3, license_type = $4, total_quantity = $5, price = $6,
		    purchase_date = $7, expiry_date = $8, contract_date = $9,
		    notice_period_days = $10, admin_name = $11, description = $12,
		    payment_cycle = $13, unit_price = $14, currency = $15, exchange_rate = $16,
		    is_vat_included = $17, total_amount_foreign = $18, total_amount_krw = $19,
		    renewal_cycle = $20, cycle_months = $21, first_purchased_at = $22,
		    last_renewed_at = $23, renewal_date = $24, updated_at = $25
		WHERE id = $1
	`

	l.UpdatedAt = time.Now()
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		l.ID, l.Name, l.Key, l.LicenseType, l.TotalQuantity, l.Price,
		l.PurchaseDate, l.ExpiryDate, l.ContractDate,
		l.NoticePeriodDays, l.AdminName, l.Description,
		l.PaymentCycle, l.UnitPrice, l.Currency, l.ExchangeRate,
		l.IsVatIncluded, l.TotalAmountForeign, l.TotalAmountKRW,
		l.RenewalCycle, l.CycleMonths, l.FirstPurchasedAt,
		l.LastRenewedAt, l.RenewalDate, l.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("update license", err)
	}

	if err := checkRowsAffected(result, "license", l.ID); err != nil {
		return err
	}

	r.logger.Debug("license updated", zap.Int64("id", l.ID))
	return nil
}

// UpdateRenewalDate stores a recomputed renewal date
func (r *LicenseRepository) UpdateRenewalDate(ctx context.Context, id int64, renewalDate *time.Time) error {
	query := `UPDATE licenses SET renewal_date = $2, updated_at = $3 WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id, renewalDate, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update renewal date: %w", err)
	}

	return checkRowsAffected(result, "license", id)
}

// Delete deletes a license; seats, assignments and memberships cascade
func (r *LicenseRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM licenses WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete license: %w", err)
	}

	if err := checkRowsAffected(result, "license", id); err != nil {
		return err
	}

	r.logger.Debug("license deleted", zap.Int64("id", id))
	return nil
}
