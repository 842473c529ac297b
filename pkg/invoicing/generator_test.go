package invoicing

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightly/manifest/pkg/models"
)

var testLogger = ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})

type fakeLoadStore struct {
	loads map[string]*models.Load

	invoiced     [][]string
	weekWrites   map[string]string
	failedWrites bool
}

func newFakeLoadStore(loads ...*models.Load) *fakeLoadStore {
	s := &fakeLoadStore{
		loads:      make(map[string]*models.Load),
		weekWrites: make(map[string]string),
	}
	for _, l := range loads {
		s.loads[l.ID] = l
	}
	return s
}

func (s *fakeLoadStore) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]models.Load, error) {
	var out []models.Load
	for _, id := range ids {
		if l, ok := s.loads[id]; ok && l.TenantID == tenantID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeLoadStore) ListUninvoicedByCarrier(ctx context.Context, tenantID string, carrierID string) ([]models.Load, error) {
	var out []models.Load
	for _, l := range s.loads {
		if l.TenantID == tenantID && l.CarrierID != nil && *l.CarrierID == carrierID && !l.Cancelled && !l.Invoiced {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeLoadStore) SetInvoiceWeek(ctx context.Context, tenantID string, id string, invoiceMonday *time.Time, invoiceWeekID *string) error {
	if s.failedWrites {
		return errors.New("write failed")
	}
	s.weekWrites[id] = *invoiceWeekID
	if l, ok := s.loads[id]; ok {
		l.InvoiceMonday = invoiceMonday
		l.InvoiceWeekID = invoiceWeekID
	}
	return nil
}

func (s *fakeLoadStore) MarkInvoiced(ctx context.Context, tenantID string, ids []string) error {
	s.invoiced = append(s.invoiced, ids)
	for _, id := range ids {
		if l, ok := s.loads[id]; ok {
			l.Invoiced = true
		}
	}
	return nil
}

type fakeInvoiceStore struct {
	created []models.Invoice
	next    int64
}

func (s *fakeInvoiceStore) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	invoice.ID = invoice.InvoiceNumber
	s.created = append(s.created, *invoice)
	return invoice, nil
}

func (s *fakeInvoiceStore) NextInvoiceNumbers(ctx context.Context, tenantID string, count int) ([]int64, error) {
	numbers := make([]int64, count)
	for i := range numbers {
		s.next++
		numbers[i] = s.next
	}
	return numbers, nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func invoiceableLoad(id, pickup, delivery string, rate float64) *models.Load {
	return &models.Load{
		ID:           id,
		TenantID:     "t1",
		CarrierID:    strPtr("c1"),
		Rate:         floatPtr(rate),
		PickupDate:   datePtr(pickup),
		DeliveryDate: datePtr(delivery),
		Confirmed:    true,
	}
}

func TestGenerateForCarrierSplitsByWeek(t *testing.T) {
	ctx := context.Background()

	loadStore := newFakeLoadStore(
		invoiceableLoad("a", "2024-03-12", "2024-03-14", 1000),
		invoiceableLoad("b", "2024-03-13", "2024-03-15", 500),
		invoiceableLoad("c", "2024-03-19", "2024-03-21", 750),
	)
	invoiceStore := &fakeInvoiceStore{}
	gen := NewGenerator(loadStore, invoiceStore, testLogger, GeneratorConfig{DueDays: 30})

	invoices, err := gen.GenerateForCarrier(ctx, "t1", models.GenerateInvoicesRequest{CarrierID: "c1"})
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	first, second := invoices[0], invoices[1]
	assert.Equal(t, "2024-03-11", first.InvoiceWeekID)
	assert.ElementsMatch(t, []string{"a", "b"}, []string(first.LoadIDs))
	assert.Equal(t, 1500.0, first.TotalAmount)

	assert.Equal(t, "2024-03-18", second.InvoiceWeekID)
	assert.Equal(t, []string{"c"}, []string(second.LoadIDs))
	assert.Equal(t, 750.0, second.TotalAmount)

	// sequential numbers across the two invoices
	assert.Equal(t, "INV-000001", first.InvoiceNumber)
	assert.Equal(t, "INV-000002", second.InvoiceNumber)

	assert.True(t, loadStore.loads["a"].Invoiced)
	assert.True(t, loadStore.loads["b"].Invoiced)
	assert.True(t, loadStore.loads["c"].Invoiced)
}

func TestGenerateForCarrierFailsOnDatelessSubset(t *testing.T) {
	ctx := context.Background()

	good := invoiceableLoad("good", "2024-03-12", "2024-03-14", 1000)
	bad := &models.Load{
		ID:         "bad",
		TenantID:   "t1",
		CarrierID:  strPtr("c1"),
		Confirmed:  true,
		PickupDate: datePtr("2024-03-12"),
	}

	loadStore := newFakeLoadStore(good, bad)
	invoiceStore := &fakeInvoiceStore{}
	gen := NewGenerator(loadStore, invoiceStore, testLogger, GeneratorConfig{})

	_, err := gen.GenerateForCarrier(ctx, "t1", models.GenerateInvoicesRequest{CarrierID: "c1", LoadIDs: []string{"good", "bad"}})
	require.Error(t, err)

	require.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	assert.Empty(t, invoiceStore.created)
	assert.False(t, loadStore.loads["good"].Invoiced, "failure must not invoice anything")
}

func TestGenerateForCarrierExplicitSubsetValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(*models.Load)
		ids   []string
	}{
		{"unknown load id", func(l *models.Load) {}, []string{"a", "missing"}},
		{"wrong carrier", func(l *models.Load) { l.CarrierID = strPtr("c2") }, []string{"a"}},
		{"cancelled load", func(l *models.Load) { l.Cancelled = true }, []string{"a"}},
		{"already invoiced", func(l *models.Load) { l.Invoiced = true }, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load := invoiceableLoad("a", "2024-03-12", "2024-03-14", 1000)
			tt.setup(load)
			loadStore := newFakeLoadStore(load)
			invoiceStore := &fakeInvoiceStore{}
			gen := NewGenerator(loadStore, invoiceStore, testLogger, GeneratorConfig{})

			_, err := gen.GenerateForCarrier(ctx, "t1", models.GenerateInvoicesRequest{CarrierID: "c1", LoadIDs: tt.ids})
			require.Error(t, err)

			require.True(t, httperror.IsHTTPError(err))
			assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
			assert.Empty(t, invoiceStore.created, "nothing may be created on failure")
		})
	}
}

func TestGenerateForCarrierCorrectsStaleWeeks(t *testing.T) {
	ctx := context.Background()

	load := invoiceableLoad("a", "2024-03-12", "2024-03-14", 1000)
	load.InvoiceWeekID = strPtr("2024-02-05") // stale
	stale := *datePtr("2024-02-05")
	load.InvoiceMonday = &stale

	loadStore := newFakeLoadStore(load)
	invoiceStore := &fakeInvoiceStore{}
	gen := NewGenerator(loadStore, invoiceStore, testLogger, GeneratorConfig{})

	invoices, err := gen.GenerateForCarrier(ctx, "t1", models.GenerateInvoicesRequest{CarrierID: "c1"})
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	assert.Equal(t, "2024-03-11", invoices[0].InvoiceWeekID)
	assert.Equal(t, "2024-03-11", loadStore.weekWrites["a"])
}

func TestGenerateForCarrierSkipsUnconfirmedAndConflicted(t *testing.T) {
	ctx := context.Background()

	unconfirmed := invoiceableLoad("a", "2024-03-12", "2024-03-14", 1000)
	unconfirmed.Confirmed = false
	conflicted := invoiceableLoad("b", "2024-03-12", "2024-03-14", 1000)
	conflicted.DateConflictIDs = []string{"x"}

	loadStore := newFakeLoadStore(unconfirmed, conflicted)
	invoiceStore := &fakeInvoiceStore{}
	gen := NewGenerator(loadStore, invoiceStore, testLogger, GeneratorConfig{ExcludeDateConflicts: true})

	_, err := gen.GenerateForCarrier(ctx, "t1", models.GenerateInvoicesRequest{CarrierID: "c1"})
	require.Error(t, err)

	require.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
}

func TestGenerateForCarrierDueDate(t *testing.T) {
	ctx := context.Background()

	loadStore := newFakeLoadStore(invoiceableLoad("a", "2024-03-12", "2024-03-14", 1000))
	invoiceStore := &fakeInvoiceStore{}
	gen := NewGenerator(loadStore, invoiceStore, testLogger, GeneratorConfig{DueDays: 15})

	invoices, err := gen.GenerateForCarrier(ctx, "t1", models.GenerateInvoicesRequest{CarrierID: "c1"})
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	assert.Equal(t, invoices[0].InvoiceDate.AddDate(0, 0, 15), invoices[0].DueDate)
}
