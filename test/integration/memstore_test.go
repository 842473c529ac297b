package integration

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/freightly/manifest/pkg/models"
)

var testLogger = ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})

// memStore is an in-memory load and invoice store with the same observable
// semantics as the Postgres repositories. The scenario tests drive the
// conflict engines and the invoice generator through it end to end.
type memStore struct {
	mu       sync.Mutex
	loads    map[string]*models.Load
	invoices map[string]*models.Invoice
	nextNum  int64
}

func newMemStore() *memStore {
	return &memStore{
		loads:    make(map[string]*models.Load),
		invoices: make(map[string]*models.Invoice),
		nextNum:  1,
	}
}

func (m *memStore) put(l models.Load) models.Load {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	cp := l
	m.loads[l.ID] = &cp
	return l
}

func (m *memStore) snapshot(id string) models.Load {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.loads[id]
}

func (m *memStore) Get(ctx context.Context, tenantID string, id string) (*models.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loads[id]
	if !ok || l.TenantID != tenantID {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("load %s not found", id))
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]models.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Load
	for _, id := range ids {
		if l, ok := m.loads[id]; ok && l.TenantID == tenantID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveByDriver(ctx context.Context, tenantID string, driverID string) ([]models.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Load
	for _, l := range m.loads {
		if l.TenantID == tenantID && !l.Cancelled && l.DriverID != nil && *l.DriverID == driverID && l.HasDates() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveByCarrierAndLoadNumber(ctx context.Context, tenantID string, carrierID string, loadNumber string) ([]models.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalized := strings.ToLower(strings.TrimSpace(loadNumber))
	var out []models.Load
	for _, l := range m.loads {
		if l.TenantID != tenantID || l.Cancelled || l.CarrierID == nil || *l.CarrierID != carrierID || l.LoadNumber == nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(*l.LoadNumber)) == normalized {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveWithDates(ctx context.Context, tenantID string) ([]models.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Load
	for _, l := range m.loads {
		if l.TenantID == tenantID && !l.Cancelled && l.HasDates() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) ListUninvoicedByCarrier(ctx context.Context, tenantID string, carrierID string) ([]models.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Load
	for _, l := range m.loads {
		if l.TenantID == tenantID && !l.Cancelled && !l.Invoiced && l.CarrierID != nil && *l.CarrierID == carrierID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) UpdateDriverConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loads[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "load not found")
	}
	l.DriverConflictIDs = pq.StringArray(conflictIDs)
	l.DriverConflict = len(conflictIDs) > 0
	return nil
}

func (m *memStore) UpdateDuplicateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loads[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "load not found")
	}
	l.DuplicateConflictIDs = pq.StringArray(conflictIDs)
	l.DuplicateConflict = len(conflictIDs) > 0
	return nil
}

func (m *memStore) UpdateDateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loads[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "load not found")
	}
	l.DateConflictIDs = pq.StringArray(conflictIDs)
	return nil
}

func (m *memStore) ClearConflicts(ctx context.Context, tenantID string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loads[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "load not found")
	}
	l.DriverConflict = false
	l.DriverConflictIDs = nil
	l.DuplicateConflict = false
	l.DuplicateConflictIDs = nil
	l.DateConflictIDs = nil
	return nil
}

func (m *memStore) RemoveFromConflictLists(ctx context.Context, tenantID string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.loads {
		if l.TenantID != tenantID || l.ID == id {
			continue
		}
		l.DriverConflictIDs = removeID(l.DriverConflictIDs, id)
		l.DriverConflict = len(l.DriverConflictIDs) > 0
		l.DuplicateConflictIDs = removeID(l.DuplicateConflictIDs, id)
		l.DuplicateConflict = len(l.DuplicateConflictIDs) > 0
		l.DateConflictIDs = removeID(l.DateConflictIDs, id)
	}
	return nil
}

func (m *memStore) SetInvoiceWeek(ctx context.Context, tenantID string, id string, invoiceMonday *time.Time, invoiceWeekID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loads[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "load not found")
	}
	l.InvoiceMonday = invoiceMonday
	l.InvoiceWeekID = invoiceWeekID
	return nil
}

func (m *memStore) MarkInvoiced(ctx context.Context, tenantID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if l, ok := m.loads[id]; ok {
			l.Invoiced = true
		}
	}
	return nil
}

func (m *memStore) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	cp := *invoice
	m.invoices[invoice.ID] = &cp
	return invoice, nil
}

func (m *memStore) NextInvoiceNumbers(ctx context.Context, tenantID string, count int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	numbers := make([]int64, count)
	for i := range numbers {
		numbers[i] = m.nextNum
		m.nextNum++
	}
	return numbers, nil
}

func removeID(ids pq.StringArray, id string) pq.StringArray {
	var out pq.StringArray
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
