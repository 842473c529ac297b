package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightly/manifest/pkg/models"
)

type fakeBackfillStore struct {
	loads  []models.Load
	writes map[string]string
}

func (s *fakeBackfillStore) ListWithDates(ctx context.Context, tenantID string) ([]models.Load, error) {
	return s.loads, nil
}

func (s *fakeBackfillStore) SetInvoiceWeek(ctx context.Context, tenantID string, id string, invoiceMonday *time.Time, invoiceWeekID *string) error {
	if s.writes == nil {
		s.writes = make(map[string]string)
	}
	s.writes[id] = *invoiceWeekID
	for i := range s.loads {
		if s.loads[i].ID == id {
			s.loads[i].InvoiceMonday = invoiceMonday
			s.loads[i].InvoiceWeekID = invoiceWeekID
		}
	}
	return nil
}

func TestBackfillerRun(t *testing.T) {
	ctx := context.Background()

	current := "2024-03-11"
	store := &fakeBackfillStore{loads: []models.Load{
		{ID: "stale", TenantID: "t1", PickupDate: datePtr("2024-03-12"), DeliveryDate: datePtr("2024-03-14"), InvoiceWeekID: strPtr("2024-02-05")},
		{ID: "missing", TenantID: "t1", PickupDate: datePtr("2024-03-12"), DeliveryDate: datePtr("2024-03-14")},
		{ID: "current", TenantID: "t1", PickupDate: datePtr("2024-03-12"), DeliveryDate: datePtr("2024-03-14"), InvoiceWeekID: &current},
	}}

	backfiller := NewBackfiller(store, testLogger)

	result, err := backfiller.Run(ctx, "t1", false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "2024-03-11", store.writes["stale"])
	assert.Equal(t, "2024-03-11", store.writes["missing"])
	assert.NotContains(t, store.writes, "current")
}

func TestBackfillerRunIsIdempotent(t *testing.T) {
	ctx := context.Background()

	store := &fakeBackfillStore{loads: []models.Load{
		{ID: "a", TenantID: "t1", PickupDate: datePtr("2024-03-12"), DeliveryDate: datePtr("2024-03-14")},
	}}
	backfiller := NewBackfiller(store, testLogger)

	first, err := backfiller.Run(ctx, "t1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Updated)

	second, err := backfiller.Run(ctx, "t1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 1, second.Skipped)
}

func TestBackfillerDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()

	store := &fakeBackfillStore{loads: []models.Load{
		{ID: "a", TenantID: "t1", PickupDate: datePtr("2024-03-12"), DeliveryDate: datePtr("2024-03-14")},
	}}
	backfiller := NewBackfiller(store, testLogger)

	result, err := backfiller.Run(ctx, "t1", true)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, store.writes)
}
