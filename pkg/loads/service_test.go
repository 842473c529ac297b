package loads

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freightly/manifest/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestApplyPatch(t *testing.T) {
	t.Run("nil fields are untouched", func(t *testing.T) {
		l := models.Load{
			LoadNumber: strPtr("A100"),
			CarrierID:  strPtr("c1"),
			DriverID:   strPtr("d1"),
			Confirmed:  true,
		}

		applyPatch(&l, models.UpdateLoadRequest{Origin: strPtr("Dallas")})

		assert.Equal(t, "A100", *l.LoadNumber)
		assert.Equal(t, "c1", *l.CarrierID)
		assert.Equal(t, "d1", *l.DriverID)
		assert.Equal(t, "Dallas", *l.Origin)
		assert.True(t, l.Confirmed)
	})

	t.Run("clear flags null out assignments", func(t *testing.T) {
		l := models.Load{
			CarrierID: strPtr("c1"),
			DriverID:  strPtr("d1"),
		}

		applyPatch(&l, models.UpdateLoadRequest{ClearDriver: true, ClearCarrier: true})

		assert.Nil(t, l.DriverID)
		assert.Nil(t, l.CarrierID)
	})

	t.Run("confirmed pointer toggles the flag", func(t *testing.T) {
		l := models.Load{Confirmed: true}
		confirmed := false

		applyPatch(&l, models.UpdateLoadRequest{Confirmed: &confirmed})

		assert.False(t, l.Confirmed)
	})
}

func TestGroupByCarrierAndWeek(t *testing.T) {
	week1, week2 := strPtr("2024-03-11"), strPtr("2024-03-18")

	all := []models.Load{
		{ID: "a", CarrierID: strPtr("c1"), InvoiceWeekID: week1},
		{ID: "b", CarrierID: strPtr("c1"), InvoiceWeekID: week2},
		{ID: "c", CarrierID: strPtr("c1"), InvoiceWeekID: week1},
		{ID: "d", CarrierID: strPtr("c2"), InvoiceWeekID: week1},
		{ID: "e"},
	}

	groups := groupByCarrierAndWeek(all)
	require := assert.New(t)

	require.Len(groups, 4)

	// unassigned bucket sorts first on the empty carrier key
	require.Equal("", groups[0].CarrierID)
	require.Len(groups[0].Loads, 1)

	require.Equal("c1", groups[1].CarrierID)
	require.Equal("2024-03-11", groups[1].InvoiceWeekID)
	require.Len(groups[1].Loads, 2)

	require.Equal("c1", groups[2].CarrierID)
	require.Equal("2024-03-18", groups[2].InvoiceWeekID)

	require.Equal("c2", groups[3].CarrierID)
}
