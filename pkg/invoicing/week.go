// Package invoicing assigns loads to billing weeks and generates weekly
// carrier invoices from them.
package invoicing

import (
	"time"

	"github.com/freightly/manifest/pkg/dates"
)

// WeekIDLayout formats an invoice monday as its week identifier
const WeekIDLayout = "2006-01-02"

// ComputeInvoiceWeek resolves the billing week for a load. The week anchors
// to the Monday of the delivery week. A pickup landing exactly on that Monday
// means the haul started the same day the billing week opened, and the load
// rolls forward to the following week. Returns nil when either date is
// missing or zero.
func ComputeInvoiceWeek(pickup, delivery *time.Time) (*time.Time, *string) {
	if pickup == nil || delivery == nil || pickup.IsZero() || delivery.IsZero() {
		return nil, nil
	}

	monday := dates.MondayOf(*delivery)
	if dates.DateOnly(*pickup).Equal(monday) {
		monday = monday.AddDate(0, 0, 7)
	}

	weekID := monday.Format(WeekIDLayout)
	return &monday, &weekID
}
