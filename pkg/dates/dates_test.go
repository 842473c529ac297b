package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDateOnly(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	in := time.Date(2024, 3, 11, 22, 15, 0, 0, loc)
	out := DateOnly(in)

	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), out)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		pa, da   time.Time
		pb, db   time.Time
		expected bool
	}{
		{
			name: "clear overlap",
			pa:   d("2024-03-11"), da: d("2024-03-15"),
			pb: d("2024-03-13"), db: d("2024-03-18"),
			expected: true,
		},
		{
			name: "containment",
			pa:   d("2024-03-10"), da: d("2024-03-20"),
			pb: d("2024-03-12"), db: d("2024-03-14"),
			expected: true,
		},
		{
			name: "delivery equals other pickup is not an overlap",
			pa:   d("2024-03-11"), da: d("2024-03-13"),
			pb: d("2024-03-13"), db: d("2024-03-15"),
			expected: false,
		},
		{
			name: "disjoint",
			pa:   d("2024-03-01"), da: d("2024-03-03"),
			pb: d("2024-03-10"), db: d("2024-03-12"),
			expected: false,
		},
		{
			name: "identical intervals",
			pa:   d("2024-03-11"), da: d("2024-03-13"),
			pb: d("2024-03-11"), db: d("2024-03-13"),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.pa, tt.da, tt.pb, tt.db))
			assert.Equal(t, tt.expected, Overlaps(tt.pb, tt.db, tt.pa, tt.da), "overlap must be symmetric")
		})
	}
}

func TestTouches(t *testing.T) {
	// shared endpoint counts for the legacy signal
	assert.True(t, Touches(d("2024-03-11"), d("2024-03-13"), d("2024-03-13"), d("2024-03-15")))
	assert.True(t, Touches(d("2024-03-11"), d("2024-03-13"), d("2024-03-12"), d("2024-03-15")))
	assert.False(t, Touches(d("2024-03-11"), d("2024-03-13"), d("2024-03-14"), d("2024-03-15")))
}

func TestMondayOf(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"monday maps to itself", "2024-03-11", "2024-03-11"},
		{"wednesday", "2024-03-13", "2024-03-11"},
		{"sunday belongs to the week started the prior monday", "2024-03-17", "2024-03-11"},
		{"saturday", "2024-03-16", "2024-03-11"},
		{"year boundary", "2025-01-01", "2024-12-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, d(tt.expected), MondayOf(d(tt.in)))
		})
	}
}

func TestParseDateish(t *testing.T) {
	expected := d("2024-03-11")

	for _, in := range []string{
		"2024-03-11",
		"03/11/2024",
		"3/11/2024",
		"03-11-2024",
		"March 11, 2024",
		"Mar 11, 2024",
		"2024-03-11T09:30:00Z",
		"  2024-03-11  ",
	} {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDateish(in)
			require.NoError(t, err)
			assert.Equal(t, expected, got)
		})
	}

	_, err := ParseDateish("")
	assert.Error(t, err)

	_, err = ParseDateish("not a date")
	assert.Error(t, err)
}
