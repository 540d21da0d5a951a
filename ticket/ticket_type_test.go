package ticket

import (
	"testing"

	"ticketing-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestCreateTicketType(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	tt, err := f.svc.CreateTicketType(f.ctx, f.st, organizer, eventID, &model.TicketTypeInput{
		Name:     strPtr("  VIP "),
		Price:    floatPtr(99.5),
		Capacity: intPtr(40),
	})
	require.Nil(t, err)
	assert.Equal(t, "VIP", tt.Name)
	assert.Equal(t, 40, tt.Quantity)
	assert.Equal(t, 0, tt.Sold())
	require.NotNil(t, tt.CreatedDate)

	got, err := f.svc.GetTicketType(f.ctx, f.st, eventID, tt.TicketTypeID)
	require.Nil(t, err)
	assert.Equal(t, tt.TicketTypeID, got.TicketTypeID)

	tts, err := f.svc.ListTicketTypes(f.ctx, f.st, eventID)
	require.Nil(t, err)
	assert.Len(t, tts, 1)

	_, err = f.svc.ListTicketTypes(f.ctx, f.st, 999)
	assert.ErrorIs(t, err, ErrEventNotFound)
	_, err = f.svc.GetTicketType(f.ctx, f.st, 999, tt.TicketTypeID)
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)
}

func TestCreateTicketTypeValidation(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	tests := []struct {
		name string
		in   *model.TicketTypeInput
	}{
		{"nil input", nil},
		{"missing capacity", &model.TicketTypeInput{Name: strPtr("GA"), Price: floatPtr(1)}},
		{"blank name", &model.TicketTypeInput{Name: strPtr(" "), Price: floatPtr(1), Capacity: intPtr(1)}},
		{"negative price", &model.TicketTypeInput{Name: strPtr("GA"), Price: floatPtr(-1), Capacity: intPtr(1)}},
		{"zero capacity", &model.TicketTypeInput{Name: strPtr("GA"), Price: floatPtr(1), Capacity: intPtr(0)}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := f.svc.CreateTicketType(f.ctx, f.st, organizer, eventID, test.in)
			assert.ErrorIs(t, err, ErrInvalidTicketType)
		})
	}
}

func TestTicketTypeOwnership(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	in := &model.TicketTypeInput{Name: strPtr("GA"), Price: floatPtr(1), Capacity: intPtr(1)}

	stranger := &model.Identity{UserID: 555, Role: model.RoleOrganizer}
	_, err := f.svc.CreateTicketType(f.ctx, f.st, stranger, eventID, in)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateTicketType(f.ctx, f.st, buyer(organizerID), eventID, in)
	assert.ErrorIs(t, err, ErrForbidden, "the organizer id alone is not enough without the role")
	_, err = f.svc.CreateTicketType(f.ctx, f.st, nil, eventID, in)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateTicketType(f.ctx, f.st, admin, 999, in)
	assert.ErrorIs(t, err, ErrEventNotFound)

	tt, err := f.svc.CreateTicketType(f.ctx, f.st, admin, eventID, in)
	require.Nil(t, err)

	_, err = f.svc.UpdateTicketType(f.ctx, f.st, stranger, eventID, tt.TicketTypeID, &model.TicketTypeInput{Price: floatPtr(2)})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.DeleteTicketType(f.ctx, f.st, stranger, eventID, tt.TicketTypeID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateTicketType(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 10, 20)

	tt, err := f.svc.UpdateTicketType(f.ctx, f.st, organizer, eventID, id, &model.TicketTypeInput{
		Name:     strPtr("Early bird"),
		Capacity: intPtr(12),
	})
	require.Nil(t, err)
	assert.Equal(t, "Early bird", tt.Name)
	assert.Equal(t, 20.0, tt.Price)
	assert.Equal(t, 12, tt.Capacity)
	assert.Equal(t, 12, f.available(t, id))

	_, err = f.svc.Reserve(f.ctx, f.st, id, 2, 5)
	require.Nil(t, err)
	_, err = f.svc.UpdateTicketType(f.ctx, f.st, organizer, eventID, id, &model.TicketTypeInput{Capacity: intPtr(4)})
	assert.ErrorIs(t, err, ErrTicketTypeInUse)

	_, err = f.svc.Purchase(f.ctx, f.st, id, buyer(3), 1)
	require.Nil(t, err)
	_, err = f.svc.UpdateTicketType(f.ctx, f.st, organizer, eventID, id, &model.TicketTypeInput{Capacity: intPtr(20)})
	assert.ErrorIs(t, err, ErrTicketTypeInUse)

	tt, err = f.svc.UpdateTicketType(f.ctx, f.st, organizer, eventID, id, &model.TicketTypeInput{Price: floatPtr(25)})
	require.Nil(t, err)
	assert.Equal(t, 25.0, tt.Price)
	assert.Equal(t, 11, tt.Quantity)

	_, err = f.svc.UpdateTicketType(f.ctx, f.st, organizer, eventID, id, &model.TicketTypeInput{Price: floatPtr(-3)})
	assert.ErrorIs(t, err, ErrInvalidTicketType)
	_, err = f.svc.UpdateTicketType(f.ctx, f.st, organizer, eventID, 999, &model.TicketTypeInput{Price: floatPtr(3)})
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)
}

func TestDeleteTicketType(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	sold := f.ticketType(t, 10, 20)
	held := f.ticketType(t, 10, 20)
	unused := f.ticketType(t, 10, 20)

	receipt, err := f.svc.Purchase(f.ctx, f.st, sold, buyer(2), 1)
	require.Nil(t, err)
	_, err = f.svc.CancelPurchase(f.ctx, f.st, receipt.PurchaseID, 2)
	require.Nil(t, err)
	_, err = f.svc.DeleteTicketType(f.ctx, f.st, organizer, eventID, sold)
	assert.ErrorIs(t, err, ErrTicketTypeInUse, "cancelled purchases still count")

	_, err = f.svc.Reserve(f.ctx, f.st, held, 2, 1)
	require.Nil(t, err)
	_, err = f.svc.DeleteTicketType(f.ctx, f.st, organizer, eventID, held)
	assert.ErrorIs(t, err, ErrTicketTypeInUse)

	deleted, err := f.svc.DeleteTicketType(f.ctx, f.st, organizer, eventID, unused)
	require.Nil(t, err)
	assert.Equal(t, unused, deleted.TicketTypeID)
	_, err = f.svc.GetTicketType(f.ctx, f.st, eventID, unused)
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)
}
