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

const groupColumns = `g.id, g.name, g.description, g.is_default, g.created_at, g.updated_at`

func groupScanTargets(g *models.LicenseGroup) []interface{} {
	return []interface{}{&g.ID, &g.Name, &g.Description, &g.IsDefault, &g.CreatedAt, &g.UpdatedAt}
}

// GroupRepository implements the repositories.GroupRepository interface
type GroupRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewGroupRepository creates a new license group repository
func NewGroupRepository(db *DB, logger *zap.Logger) repositories.GroupRepository {
	return &GroupRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new license group
func (r *GroupRepository) Create(ctx context.Context, g *models.LicenseGroup) error {
	query := `
		INSERT INTO license_groups (name, description, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		g.Name, g.Description, g.IsDefault, g.CreatedAt, g.UpdatedAt,
	).Scan(&g.ID)
	if err != nil {
		return wrapWriteError("create license group", err)
	}

	r.logger.Debug("license group created", zap.Int64("id", g.ID), zap.String("name", g.Name))
	return nil
}

// GetByID retrieves a license group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*models.LicenseGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM license_groups g WHERE g.id = $1`

	g := &models.LicenseGroup{}
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(groupScanTargets(g)...); err != nil {
		return nil, wrapReadError("license group", id, err)
	}
	return g, nil
}

// GetByName retrieves a license group by name
func (r *GroupRepository) GetByName(ctx context.Context, name string) (*models.LicenseGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM license_groups g WHERE g.name = $1`

	g := &models.LicenseGroup{}
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, name).Scan(groupScanTargets(g)...); err != nil {
		return nil, wrapReadError("license group", name, err)
	}
	return g, nil
}

// List retrieves all groups ordered by name with member counts
func (r *GroupRepository) List(ctx context.Context) ([]*models.GroupSummary, error) {
	query := `
		SELECT ` + groupColumns + `,
		       (SELECT COUNT(*) FROM license_group_members m WHERE m.group_id = g.id) AS license_count
		FROM license_groups g
		ORDER BY g.name
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query license groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.GroupSummary
	for rows.Next() {
		s := &models.GroupSummary{}
		targets := append(groupScanTargets(&s.LicenseGroup), &s.LicenseCount)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan license group: %w", err)
		}
		groups = append(groups, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating license group rows: %w", err)
	}

	return groups, nil
}

// ListDefault retrieves the default groups
func (r *GroupRepository) ListDefault(ctx context.Context) ([]*models.LicenseGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM license_groups g WHERE g.is_default = true ORDER BY g.id`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query default groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.LicenseGroup
	for rows.Next() {
		g := &models.LicenseGroup{}
		if err := rows.Scan(groupScanTargets(g)...); err != nil {
			return nil, fmt.Errorf("failed to scan license group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating license group rows: %w", err)
	}

	return groups, nil
}

// Update updates a license group
func (r *GroupRepository) Update(ctx context.Context, g *models.LicenseGroup) error {
	query := `
		UPDATE license_groups
		SET name = $2, description = $3, is_default = $4, updated_at = $5
		WHERE id = $1
	`

	g.UpdatedAt = time.Now()
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		g.ID, g.Name, g.Description, g.IsDefault, g.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("update license group", err)
	}

	if err := checkRowsAffected(result, "license group", g.ID); err != nil {
		return err
	}

	r.logger.Debug("license group updated", zap.Int64("id", g.ID))
	return nil
}

// Delete deletes a license group; memberships cascade
func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM license_groups WHERE id = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete license group: %w", err)
	}

	if err := checkRowsAffected(result, "license group", id); err != nil {
		return err
	}

	r.logger.Debug("license group deleted", zap.Int64("id", id))
	return nil
}

// ListMembers retrieves the licenses in a group ordered by name
func (r *GroupRepository) ListMembers(ctx context.Context, groupID int64) ([]*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses l
		JOIN license_group_members m ON m.license_id = l.id
		WHERE m.group_id = $1
		ORDER BY l.name
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
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
		return nil, fmt.Errorf("error iterating group member rows: %w", err)
	}

	return licenses, nil
}

// AddMembers adds licenses to a group, ignoring existing memberships
func (r *GroupRepository) AddMembers(ctx context.Context, groupID int64, licenseIDs []int64) (int64, error) {
	if len(licenseIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO license_group_members (group_id, license_id)
		SELECT $1, l.id FROM licenses l WHERE l.id = ANY($2)
		ON CONFLICT (group_id, license_id) DO NOTHING
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, groupID, pq.Array(licenseIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to add group members: %w", err)
	}

	added, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("group members added", zap.Int64("group_id", groupID), zap.Int64("added", added))
	return added, nil
}

// RemoveMembers removes licenses from a group
func (r *GroupRepository) RemoveMembers(ctx context.Context, groupID int64, licenseIDs []int64) (int64, error) {
	if len(licenseIDs) == 0 {
		return 0, nil
	}

	query := `DELETE FROM license_group_members WHERE group_id = $1 AND license_id = ANY($2)`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, groupID, pq.Array(licenseIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to remove group members: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("group members removed", zap.Int64("group_id", groupID), zap.Int64("removed", removed))
	return removed, nil
}

// ReplaceMembers sets the group's members to exactly licenseIDs
func (r *GroupRepository) ReplaceMembers(ctx context.Context, groupID int64, licenseIDs []int64) error {
	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM license_group_members WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}

	_, err := r.AddMembers(ctx, groupID, licenseIDs)
	return err
}
