package conflicts

import (
	"context"

	"github.com/freightly/manifest/pkg/models"
)

// LoadStore is the slice of load persistence the conflict engines need.
// Implemented by the load repository.
type LoadStore interface {
	Get(ctx context.Context, tenantID string, id string) (*models.Load, error)
	ListActiveByDriver(ctx context.Context, tenantID string, driverID string) ([]models.Load, error)
	ListActiveByCarrierAndLoadNumber(ctx context.Context, tenantID string, carrierID string, loadNumber string) ([]models.Load, error)
	ListActiveWithDates(ctx context.Context, tenantID string) ([]models.Load, error)
	UpdateDriverConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error
	UpdateDuplicateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error
	UpdateDateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error
	ClearConflicts(ctx context.Context, tenantID string, id string) error
	RemoveFromConflictLists(ctx context.Context, tenantID string, id string) error
}
