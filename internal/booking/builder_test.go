package booking

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-console/internal/status"
	"ticket-console/models"
)

func price(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func testEvent() *models.EventDetails {
	return &models.EventDetails{
		ID:    "evt-1",
		Title: "Summer Fest",
		Tickets: []models.TicketType{
			{ID: "tt-vip", Title: "VIP", Price: price(100), Seats: 50, SeatsLeft: models.IntPtr(3)},
			{ID: "tt-ga", Title: "General", Price: price(40), OfflinePrice: price(30), Seats: 200},
			{ID: "tt-sold", Title: "Sold Out", Price: price(60), Seats: 10, SeatsLeft: models.IntPtr(0)},
		},
	}
}

func selectionOf(t *testing.T, b *Builder, id string) Selection {
	t.Helper()
	for _, s := range b.Draft().Selections {
		if s.TicketTypeID == id {
			return s
		}
	}
	t.Fatalf("selection %s not found", id)
	return Selection{}
}

func TestBuilder_IncreaseStopsAtSeatsLeft(t *testing.T) {
	b := NewBuilder(testEvent())

	for i := 0; i < 3; i++ {
		_, err := b.Increase("tt-vip")
		require.NoError(t, err)
	}
	qty, err := b.Increase("tt-vip")
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	qty, err = b.Increase("tt-sold")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestBuilder_DecreaseStopsAtZero(t *testing.T) {
	b := NewBuilder(testEvent())

	qty, err := b.Decrease("tt-ga")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestBuilder_UnknownTicket(t *testing.T) {
	b := NewBuilder(testEvent())

	_, err := b.Increase("nope")
	assert.True(t, status.IsNotFound(err))
	assert.True(t, status.IsNotFound(b.SetQuantity("nope", 1)))
	_, err = b.Stage("nope")
	assert.True(t, status.IsNotFound(err))
}

func TestBuilder_SetQuantity(t *testing.T) {
	tests := []struct {
		name    string
		ticket  string
		qty     int
		wantErr bool
	}{
		{"within seats left", "tt-vip", 3, false},
		{"over seats left", "tt-vip", 4, true},
		{"negative", "tt-vip", -1, true},
		{"unbounded", "tt-ga", 500, false},
		{"sold out accepts zero", "tt-sold", 0, false},
		{"sold out rejects one", "tt-sold", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(testEvent())
			err := b.SetQuantity(tt.ticket, tt.qty)
			if tt.wantErr {
				assert.True(t, status.IsValidation(err))
				assert.Equal(t, 0, selectionOf(t, b, tt.ticket).Quantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.qty, selectionOf(t, b, tt.ticket).Quantity)
		})
	}
}

func TestBuilder_TotalWithOfflinePricing(t *testing.T) {
	b := NewBuilder(testEvent())
	require.NoError(t, b.SetQuantity("tt-vip", 2))
	require.NoError(t, b.SetQuantity("tt-ga", 3))

	assert.True(t, decimal.NewFromInt(320).Equal(b.Total()), "got %s", b.Total())

	b.SetOfflinePricing(true)
	// VIP has no offline price and keeps its regular one.
	assert.True(t, decimal.NewFromInt(290).Equal(b.Total()), "got %s", b.Total())
}

func TestBuilder_BuildReportsEveryMissingField(t *testing.T) {
	b := NewBuilder(testEvent())

	_, err := b.Build()
	var verr *status.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"tickets", "name", "email"}, verr.Fields)

	require.NoError(t, b.SetQuantity("tt-ga", 1))
	b.SetCustomer(models.CustomerInfo{Name: "  "})
	_, err = b.Build()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"name", "email"}, verr.Fields)
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(testEvent())
	require.NoError(t, b.SetQuantity("tt-vip", 3))
	require.NoError(t, b.SetQuantity("tt-ga", 2))
	b.SetCustomer(models.CustomerInfo{Name: " Noy ", Email: "noy@example.com", Phone: "020"})
	b.SetOfflinePricing(true)

	req, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "evt-1", req.EventID)
	assert.True(t, req.IsOfflinePricing)
	assert.Equal(t, "Noy", req.CustomerInfo.Name)
	require.Len(t, req.Tickets, 2)
	assert.Equal(t, "tt-vip", req.Tickets[0].TicketID)
	assert.Equal(t, 3, req.Tickets[0].Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(req.Tickets[1].Price))
	assert.True(t, req.Total().Equal(b.Total()))
}

func TestBuilder_ResetClearsDraft(t *testing.T) {
	b := NewBuilder(testEvent())
	require.NoError(t, b.SetQuantity("tt-ga", 2))
	b.SetCustomer(models.CustomerInfo{Name: "Noy", Email: "noy@example.com"})
	b.SetOfflinePricing(true)
	_, err := b.Stage("tt-ga")
	require.NoError(t, err)

	b.Reset()

	d := b.Draft()
	assert.True(t, d.Total.IsZero())
	assert.Empty(t, d.Customer.Name)
	assert.False(t, d.OfflinePricing)
	assert.Nil(t, d.Staged)
	for _, s := range d.Selections {
		assert.Zero(t, s.Quantity)
	}
}

func TestBuilder_StagingIsIsolated(t *testing.T) {
	b := NewBuilder(testEvent())

	staged, err := b.Stage("tt-ga")
	require.NoError(t, err)
	assert.Equal(t, "General", staged.Title)

	_, err = b.EditStaged("General Admission", price(25))
	require.NoError(t, err)
	assert.Equal(t, "General", selectionOf(t, b, "tt-ga").Title, "edits stay staged")

	applied, err := b.ApplyStaged()
	require.NoError(t, err)
	assert.Equal(t, "General Admission", applied.Title)
	assert.True(t, decimal.NewFromInt(25).Equal(selectionOf(t, b, "tt-ga").OfflinePrice.Decimal))
	assert.Nil(t, b.Draft().Staged)

	_, err = b.ApplyStaged()
	assert.ErrorIs(t, err, status.ErrNoStagedTicket)
}

func TestBuilder_DiscardStaged(t *testing.T) {
	b := NewBuilder(testEvent())
	_, err := b.Stage("tt-vip")
	require.NoError(t, err)
	_, err = b.EditStaged("Platinum", decimal.NullDecimal{})
	require.NoError(t, err)

	b.DiscardStaged()

	assert.Equal(t, "VIP", selectionOf(t, b, "tt-vip").Title)
	_, err = b.EditStaged("x", decimal.NullDecimal{})
	assert.ErrorIs(t, err, status.ErrNoStagedTicket)
}

func TestBuilder_EditStagedValidation(t *testing.T) {
	b := NewBuilder(testEvent())
	_, err := b.Stage("tt-vip")
	require.NoError(t, err)

	_, err = b.EditStaged("   ", decimal.NullDecimal{})
	assert.True(t, status.IsValidation(err))
	_, err = b.EditStaged("VIP", price(-1))
	assert.True(t, status.IsValidation(err))
}

func TestBuilder_RebaseClampsToFresherCatalog(t *testing.T) {
	b := NewBuilder(testEvent())
	require.NoError(t, b.SetQuantity("tt-vip", 3))
	require.NoError(t, b.SetQuantity("tt-ga", 4))
	_, err := b.Stage("tt-sold")
	require.NoError(t, err)

	fresh := testEvent()
	fresh.Tickets[0].SeatsLeft = models.IntPtr(1)
	fresh.Tickets = fresh.Tickets[:2]
	b.Rebase(fresh)

	assert.Equal(t, 1, selectionOf(t, b, "tt-vip").Quantity)
	assert.Equal(t, 4, selectionOf(t, b, "tt-ga").Quantity)
	assert.Len(t, b.Draft().Selections, 2)
	assert.Nil(t, b.Draft().Staged, "staged ticket left the catalog")
}

func TestBuilder_RebasePicksUpCatalogMetadataUnlessEdited(t *testing.T) {
	b := NewBuilder(testEvent())
	require.NoError(t, b.SetQuantity("tt-ga", 2))
	b.SetCustomer(models.CustomerInfo{Name: "Noy", Email: "noy@example.com"})
	b.SetOfflinePricing(true)

	_, err := b.Stage("tt-vip")
	require.NoError(t, err)
	_, err = b.EditStaged("Backstage", price(80))
	require.NoError(t, err)
	_, err = b.ApplyStaged()
	require.NoError(t, err)

	fresh := testEvent()
	fresh.Tickets[0].Title = "VIP Lounge"
	fresh.Tickets[0].OfflinePrice = price(90)
	fresh.Tickets[1].Title = "General Admission"
	fresh.Tickets[1].OfflinePrice = price(25)
	b.Rebase(fresh)

	ga := selectionOf(t, b, "tt-ga")
	assert.Equal(t, "General Admission", ga.Title)
	assert.True(t, decimal.NewFromInt(25).Equal(ga.OfflinePrice.Decimal))
	assert.True(t, decimal.NewFromInt(50).Equal(b.Total()), "got %s", b.Total())

	vip := selectionOf(t, b, "tt-vip")
	assert.Equal(t, "Backstage", vip.Title)
	assert.True(t, decimal.NewFromInt(80).Equal(vip.OfflinePrice.Decimal))

	// the edit survives a second refresh too
	b.Rebase(testEvent())
	assert.Equal(t, "Backstage", selectionOf(t, b, "tt-vip").Title)
	assert.Equal(t, "General", selectionOf(t, b, "tt-ga").Title)

	b.Rebase(fresh)
	req, err := b.Build()
	require.NoError(t, err)
	require.Len(t, req.Tickets, 1)
	assert.Equal(t, "General Admission", req.Tickets[0].Title)
	assert.True(t, decimal.NewFromInt(25).Equal(req.Tickets[0].Price))
}

func TestBuilder_ZeroSeatsLeftCapsAtZero(t *testing.T) {
	b := NewBuilder(testEvent())

	sold := selectionOf(t, b, "tt-sold")
	assert.False(t, sold.Unbounded)
	assert.Equal(t, 0, sold.MaxQuantity)

	qty, err := b.Increase("tt-sold")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
	assert.Error(t, b.SetQuantity("tt-sold", 1))
}

func TestBuilder_NilEvent(t *testing.T) {
	b := NewBuilder(nil)

	assert.Empty(t, b.Draft().Selections)
	assert.True(t, b.Total().IsZero())
	_, err := b.Build()
	assert.True(t, status.IsValidation(err))
}
