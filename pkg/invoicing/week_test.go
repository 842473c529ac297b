package invoicing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestComputeInvoiceWeek(t *testing.T) {
	tests := []struct {
		name           string
		pickup         string
		delivery       string
		expectedMonday string
	}{
		{
			name:   "midweek delivery anchors to its monday",
			pickup: "2024-03-12", delivery: "2024-03-14",
			expectedMonday: "2024-03-11",
		},
		{
			name:   "pickup on the invoice monday rolls forward a week",
			pickup: "2024-03-11", delivery: "2024-03-14",
			expectedMonday: "2024-03-18",
		},
		{
			name:   "delivery on monday with earlier pickup stays put",
			pickup: "2024-03-08", delivery: "2024-03-11",
			expectedMonday: "2024-03-11",
		},
		{
			name:   "pickup and delivery both on monday roll forward",
			pickup: "2024-03-11", delivery: "2024-03-11",
			expectedMonday: "2024-03-18",
		},
		{
			name:   "sunday delivery belongs to the week started the prior monday",
			pickup: "2024-03-12", delivery: "2024-03-17",
			expectedMonday: "2024-03-11",
		},
		{
			name:   "pickup in an earlier week does not roll forward",
			pickup: "2024-02-27", delivery: "2024-03-14",
			expectedMonday: "2024-03-11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monday, weekID := ComputeInvoiceWeek(datePtr(tt.pickup), datePtr(tt.delivery))
			require.NotNil(t, monday)
			require.NotNil(t, weekID)

			assert.Equal(t, *datePtr(tt.expectedMonday), *monday)
			assert.Equal(t, tt.expectedMonday, *weekID)
			assert.Equal(t, time.Monday, monday.Weekday())
		})
	}
}

func TestComputeInvoiceWeekMissingDates(t *testing.T) {
	monday, weekID := ComputeInvoiceWeek(nil, datePtr("2024-03-14"))
	assert.Nil(t, monday)
	assert.Nil(t, weekID)

	monday, weekID = ComputeInvoiceWeek(datePtr("2024-03-12"), nil)
	assert.Nil(t, monday)
	assert.Nil(t, weekID)

	// a zero time pointer, as an unset JSON date decodes, is treated as missing
	zero := time.Time{}
	monday, weekID = ComputeInvoiceWeek(&zero, datePtr("2024-03-14"))
	assert.Nil(t, monday)
	assert.Nil(t, weekID)

	monday, weekID = ComputeInvoiceWeek(datePtr("2024-03-12"), &zero)
	assert.Nil(t, monday)
	assert.Nil(t, weekID)
}

func TestComputeInvoiceWeekIsDeterministic(t *testing.T) {
	pickup, delivery := datePtr("2024-03-12"), datePtr("2024-03-14")

	m1, w1 := ComputeInvoiceWeek(pickup, delivery)
	m2, w2 := ComputeInvoiceWeek(pickup, delivery)

	assert.Equal(t, *m1, *m2)
	assert.Equal(t, *w1, *w2)
}

func TestComputeInvoiceWeekIgnoresTimeOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	pickup := time.Date(2024, 3, 12, 23, 45, 0, 0, loc)
	delivery := time.Date(2024, 3, 14, 6, 30, 0, 0, loc)

	monday, weekID := ComputeInvoiceWeek(&pickup, &delivery)
	require.NotNil(t, monday)

	assert.Equal(t, *datePtr("2024-03-11"), *monday)
	assert.Equal(t, "2024-03-11", *weekID)
}
