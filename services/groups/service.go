package groups

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/audit"
	"go.uber.org/zap"
)

// CreateInput holds the fields of a new group
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
	IsDefault   bool    `json:"is_default"`
	LicenseIDs  []int64 `json:"license_ids"`
}

// UpdateInput holds the group fields to change
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsDefault   *bool   `json:"is_default"`
}

// Service manages license groups and their members
type Service struct {
	groups   repositories.GroupRepository
	recorder *audit.Recorder
	txMgr    repositories.TransactionManager
	logger   *zap.Logger
}

// NewService creates a new group Service
func NewService(groups repositories.GroupRepository, txMgr repositories.TransactionManager,
	recorder *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{groups: groups, recorder: recorder, txMgr: txMgr, logger: logger}
}

// List returns groups ordered by name with their license counts
func (s *Service) List(ctx context.Context) ([]*models.GroupSummary, error) {
	list, err := s.groups.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list groups", err)
	}
	return list, nil
}

// Get returns a group with its member licenses
func (s *Service) Get(ctx context.Context, id int64) (*models.GroupDetail, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepoError(err, services.ErrGroupNotFound, nil, "failed to load group")
	}

	members, err := s.groups.ListMembers(ctx, id)
	if err != nil {
		return nil, services.WrapInternal("failed to load group licenses", err)
	}
	if members == nil {
		members = []*models.License{}
	}

	return &models.GroupDetail{LicenseGroup: *group, Licenses: members}, nil
}

// Create inserts a group with its initial licenses
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*models.GroupDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, services.Validation("group name is required")
	}

	group := models.NewLicenseGroup(name, trimmed(in.Description), in.IsDefault)
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		if err := s.groups.Create(ctx, group); err != nil {
			return services.MapRepoError(err, nil, services.ErrDuplicateName, "failed to create group")
		}
		if _, err := s.groups.AddMembers(ctx, group.ID, in.LicenseIDs); err != nil {
			return services.WrapInternal("failed to add group licenses", err)
		}
		return s.record(ctx, models.AuditActionCreated, group, actor, fmt.Sprintf("%s created", group.Name),
			map[string]interface{}{"license_ids": in.LicenseIDs, "is_default": group.IsDefault})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created license group", zap.Int64("group_id", group.ID), zap.String("name", group.Name))
	return s.Get(ctx, group.ID)
}

// Update changes the given group fields
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actor string) (*models.GroupDetail, error) {
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		group, err := s.groups.GetByID(ctx, id)
		if err != nil {
			return services.MapRepoError(err, services.ErrGroupNotFound, nil, "failed to load group")
		}

		if in.Name != nil {
			if group.Name = strings.TrimSpace(*in.Name); group.Name == "" {
				return services.Validation("group name is required")
			}
		}
		if in.Description != nil {
			group.Description = trimmed(in.Description)
		}
		if in.IsDefault != nil {
			group.IsDefault = *in.IsDefault
		}

		if err := s.groups.Update(ctx, group); err != nil {
			return services.MapRepoError(err, services.ErrGroupNotFound, services.ErrDuplicateName, "failed to update group")
		}
		return s.record(ctx, models.AuditActionUpdated, group, actor, fmt.Sprintf("%s updated", group.Name), nil)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a group. Member licenses are left untouched.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	return services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		group, err := s.groups.GetByID(ctx, id)
		if err != nil {
			return services.MapRepoError(err, services.ErrGroupNotFound, nil, "failed to load group")
		}
		if err := s.record(ctx, models.AuditActionDeleted, group, actor, fmt.Sprintf("%s deleted", group.Name), nil); err != nil {
			return err
		}
		if err := s.groups.Delete(ctx, id); err != nil {
			return services.MapRepoError(err, services.ErrGroupNotFound, nil, "failed to delete group")
		}
		s.logger.Info("deleted license group", zap.Int64("group_id", id))
		return nil
	})
}

// AddMembers adds licenses to a group, skipping existing memberships
func (s *Service) AddMembers(ctx context.Context, id int64, licenseIDs []int64, actor string) (*models.GroupDetail, error) {
	return s.changeMembers(ctx, id, licenseIDs, actor, "added", s.groups.AddMembers)
}

// RemoveMembers removes licenses from a group
func (s *Service) RemoveMembers(ctx context.Context, id int64, licenseIDs []int64, actor string) (*models.GroupDetail, error) {
	return s.changeMembers(ctx, id, licenseIDs, actor, "removed", s.groups.RemoveMembers)
}

func (s *Service) changeMembers(ctx context.Context, id int64, licenseIDs []int64, actor, verb string,
	apply func(context.Context, int64, []int64) (int64, error)) (*models.GroupDetail, error) {
	if len(licenseIDs) == 0 {
		return nil, services.Validation("select at least one license")
	}

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		group, err := s.groups.GetByID(ctx, id)
		if err != nil {
			return services.MapRepoError(err, services.ErrGroupNotFound, nil, "failed to load group")
		}

		n, err := apply(ctx, id, licenseIDs)
		if err != nil {
			return services.WrapInternal("failed to change group licenses", err)
		}
		if n == 0 {
			return nil
		}
		return s.record(ctx, models.AuditActionUpdated, group, actor,
			fmt.Sprintf("%d licenses %s in %s", n, verb, group.Name),
			map[string]interface{}{"license_ids": licenseIDs})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) record(ctx context.Context, action models.AuditAction, group *models.LicenseGroup, actor, summary string,
	extra map[string]interface{}) error {
	if err := s.recorder.Record(ctx, models.AuditEntityGroup, action, group.ID, actor, summary, extra); err != nil {
		return services.WrapInternal("failed to record audit entry", err)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
