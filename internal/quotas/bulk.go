package quotas

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldops-backend/pkg/errors"
)

// validateBulk checks every input up front and returns the de-duplicated tenant
// list. All problems are reported together.
func (s *service) validateBulk(ctx context.Context, tenantIDs []uuid.UUID, quotaType enums.QuotaType, newLimit int64) ([]uuid.UUID, error) {
	var combined error
	if !quotaType.IsValid() {
		combined = multierr.Append(combined, fmt.Errorf("unknown quota_type %q", quotaType))
	}
	if newLimit < models.UnlimitedQuota {
		combined = multierr.Append(combined, fmt.Errorf("quota_limit must be -1 (unlimited) or >= 0, got %d", newLimit))
	}
	if len(tenantIDs) == 0 {
		combined = multierr.Append(combined, fmt.Errorf("tenant_ids must not be empty"))
	}

	seen := make(map[uuid.UUID]struct{}, len(tenantIDs))
	unique := make([]uuid.UUID, 0, len(tenantIDs))
	for i, id := range tenantIDs {
		if id == uuid.Nil {
			combined = multierr.Append(combined, fmt.Errorf("tenant_ids[%d] is empty", i))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var invalid []string
	if len(unique) > 0 {
		found, err := s.repo.ExistingTenantIDs(ctx, unique)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tenants")
		}
		known := make(map[uuid.UUID]struct{}, len(found))
		for _, id := range found {
			known[id] = struct{}{}
		}
		for _, id := range unique {
			if _, ok := known[id]; !ok {
				invalid = append(invalid, id.String())
				combined = multierr.Append(combined, fmt.Errorf("tenant %s not found", id))
			}
		}
	}

	if combined == nil {
		return unique, nil
	}
	errs := multierr.Errors(combined)
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	details := map[string]any{"errors": messages}
	if len(invalid) > 0 {
		details["invalid_tenant_ids"] = invalid
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "bulk limit update rejected").WithDetails(details)
}
