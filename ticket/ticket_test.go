package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ticketing-backend/model"
	"ticketing-backend/notify"
	"ticketing-backend/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	eventID     int64 = 1
	organizerID int64 = 100
)

var (
	admin     = &model.Identity{UserID: 1, Username: "root", Role: model.RoleAdmin}
	organizer = &model.Identity{UserID: organizerID, Username: "org", Role: model.RoleOrganizer}
)

type fixture struct {
	ctx   context.Context
	st    *store.Memory
	svc   *Ticket
	clock time.Time
}

func newFixture(t *testing.T, cfg Config, notifier notify.Notifier) *fixture {
	f := &fixture{
		ctx:   context.Background(),
		st:    store.NewMemory(),
		clock: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.st.AddEvent(model.Event{
		EventID:     eventID,
		Title:       "Jazz Night",
		StartsAt:    f.clock.Add(48 * time.Hour),
		OrganizerID: organizerID,
	})
	f.svc = NewTicket(cfg, notifier)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) ticketType(t *testing.T, capacity int, price float64) int64 {
	name := "General"
	tt, err := f.svc.CreateTicketType(f.ctx, f.st, organizer, eventID, &model.TicketTypeInput{
		Name:     &name,
		Price:    &price,
		Capacity: &capacity,
	})
	require.Nil(t, err)
	return tt.TicketTypeID
}

func buyer(id int64) *model.Identity {
	return &model.Identity{UserID: id, Username: "buyer", Email: "buyer@example.com", Role: model.RoleUser}
}

func (f *fixture) available(t *testing.T, ticketTypeID int64) int {
	n, err := f.svc.AvailableQuantity(f.ctx, f.st, ticketTypeID)
	require.Nil(t, err)
	return n
}

func TestNewTicketDefaults(t *testing.T) {
	s := NewTicket(Config{}, nil)
	assert.Equal(t, DefaultMaxPerUser, s.cfg.MaxPerUser)
	assert.Equal(t, DefaultReservationTTL, s.cfg.ReservationTTL)
	assert.IsType(t, &notify.Log{}, s.notifier)
}

func TestAvailability(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 10, 25)

	_, err := f.svc.Reserve(f.ctx, f.st, id, 2, 3)
	require.Nil(t, err)
	_, err = f.svc.Purchase(f.ctx, f.st, id, buyer(3), 4)
	require.Nil(t, err)

	a, err := f.svc.Availability(f.ctx, f.st, id)
	require.Nil(t, err)
	assert.Equal(t, model.Availability{TicketTypeID: id, Capacity: 10, Sold: 4, Reserved: 3, Available: 3}, *a)

	_, err = f.svc.Availability(f.ctx, f.st, 999)
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)
}

func TestReservationBlocksOtherBuyers(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 5, 10)

	r, err := f.svc.Reserve(f.ctx, f.st, id, 2, 4)
	require.Nil(t, err)
	assert.Equal(t, f.clock.Add(DefaultReservationTTL), r.ExpiresAt)
	assert.Equal(t, 1, f.available(t, id))

	_, err = f.svc.Reserve(f.ctx, f.st, id, 3, 2)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	_, err = f.svc.Purchase(f.ctx, f.st, id, buyer(3), 2)
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	// The holder's own hold does not count against their purchase.
	receipt, err := f.svc.Purchase(f.ctx, f.st, id, buyer(2), 4)
	require.Nil(t, err)
	assert.Equal(t, 40.0, receipt.TotalPrice)
	assert.Equal(t, 1, f.available(t, id))
}

func TestExpiredReservationsAreReleased(t *testing.T) {
	f := newFixture(t, Config{ReservationTTL: time.Minute}, nil)
	id := f.ticketType(t, 5, 10)

	_, err := f.svc.Reserve(f.ctx, f.st, id, 2, 5)
	require.Nil(t, err)
	assert.Equal(t, 0, f.available(t, id))

	f.clock = f.clock.Add(time.Minute)
	assert.Equal(t, 5, f.available(t, id))

	_, err = f.svc.Purchase(f.ctx, f.st, id, buyer(3), 5)
	assert.Nil(t, err)
	assert.Equal(t, 0, f.available(t, id))
}

func TestAvailabilityIsNeverNegative(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 5, 10)

	_, err := f.svc.Reserve(f.ctx, f.st, id, 2, 5)
	require.Nil(t, err)

	// A hold left over after inventory shrank outside the manager.
	require.Nil(t, f.st.WithTx(f.ctx, func(tx store.Tx) error {
		_, err := tx.DecrementQuantity(f.ctx, id, 3)
		return err
	}))

	a, err := f.svc.Availability(f.ctx, f.st, id)
	require.Nil(t, err)
	assert.Equal(t, 0, a.Available)
	assert.Equal(t, 5, a.Reserved)
}

func TestPurchaseValidation(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 5, 10)

	_, err := f.svc.Purchase(f.ctx, f.st, id, buyer(2), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.svc.Reserve(f.ctx, f.st, id, 2, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.svc.Purchase(f.ctx, f.st, 999, buyer(2), 1)
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)
	_, err = f.svc.Purchase(f.ctx, f.st, id, buyer(2), 6)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	assert.Equal(t, 5, f.available(t, id))
}

func TestUserCap(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 50, 10)

	_, err := f.svc.Purchase(f.ctx, f.st, id, buyer(2), 9)
	require.Nil(t, err)

	_, err = f.svc.Purchase(f.ctx, f.st, id, buyer(2), 2)
	assert.ErrorIs(t, err, ErrUserCapExceeded)
	assert.Equal(t, 41, f.available(t, id), "a rejected purchase changes nothing")

	_, err = f.svc.Purchase(f.ctx, f.st, id, buyer(2), 1)
	assert.Nil(t, err)

	held, err := f.svc.UserPurchasedQuantity(f.ctx, f.st, 2, eventID)
	require.Nil(t, err)
	assert.Equal(t, 10, held)

	_, err = f.svc.UserPurchasedQuantity(f.ctx, f.st, 2, 999)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestPurchaseAndCancel(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 5, 12.5)

	receipt, err := f.svc.Purchase(f.ctx, f.st, id, buyer(2), 3)
	require.Nil(t, err)
	assert.Equal(t, 2, f.available(t, id))

	pd, err := f.svc.GetPurchase(f.ctx, f.st, receipt.PurchaseID, 2)
	require.Nil(t, err)
	assert.Equal(t, model.PurchaseActive, pd.Status)
	assert.Equal(t, "Jazz Night", pd.EventTitle)
	assert.Equal(t, 37.5, pd.TotalPrice)

	_, err = f.svc.GetPurchase(f.ctx, f.st, receipt.PurchaseID, 3)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
	_, err = f.svc.CancelPurchase(f.ctx, f.st, receipt.PurchaseID, 3)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	cancelled, err := f.svc.CancelPurchase(f.ctx, f.st, receipt.PurchaseID, 2)
	require.Nil(t, err)
	assert.Equal(t, model.PurchaseCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, f.clock, *cancelled.CancelledAt)
	assert.Equal(t, 37.5, cancelled.TotalPrice)
	assert.Equal(t, 5, f.available(t, id))
	_, err = f.svc.CancelPurchase(f.ctx, f.st, receipt.PurchaseID, 2)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	active, err := f.svc.ListPurchases(f.ctx, f.st, 2)
	require.Nil(t, err)
	assert.Len(t, active, 0)

	history, err := f.svc.PurchaseHistory(f.ctx, f.st, 2)
	require.Nil(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.PurchaseCancelled, history[0].Status)

	held, err := f.svc.UserPurchasedQuantity(f.ctx, f.st, 2, eventID)
	require.Nil(t, err)
	assert.Equal(t, 0, held)
}

func TestCancelAfterEventStarted(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 5, 10)

	receipt, err := f.svc.Purchase(f.ctx, f.st, id, buyer(2), 2)
	require.Nil(t, err)

	f.clock = f.clock.Add(48 * time.Hour)
	_, err = f.svc.CancelPurchase(f.ctx, f.st, receipt.PurchaseID, 2)
	assert.ErrorIs(t, err, ErrEventAlreadyStarted)
	assert.Equal(t, 3, f.available(t, id))
}

func TestConcurrentPurchasesOverLastTickets(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 5, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Purchase(f.ctx, f.st, id, buyer(int64(10+i)), 3)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientInventory)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.available(t, id))
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	id := f.ticketType(t, 20, 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			if _, err := f.svc.Purchase(f.ctx, f.st, id, buyer(user), 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(int64(1000 + i))
	}
	wg.Wait()

	assert.Equal(t, 20, succeeded)
	a, err := f.svc.Availability(f.ctx, f.st, id)
	require.Nil(t, err)
	assert.Equal(t, 0, a.Available)
	assert.Equal(t, 20, a.Sold)
}

type mockNotifier struct {
	mock.Mock
	done chan struct{}
}

func newMockNotifier(err error) *mockNotifier {
	n := &mockNotifier{done: make(chan struct{}, 1)}
	n.On("PurchaseConfirmed", mock.Anything, mock.AnythingOfType("notify.Confirmation")).Return(err)
	return n
}

func (m *mockNotifier) PurchaseConfirmed(ctx context.Context, conf notify.Confirmation) error {
	args := m.Called(ctx, conf)
	m.done <- struct{}{}
	return args.Error(0)
}

func (m *mockNotifier) wait(t *testing.T) notify.Confirmation {
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation sent")
	}
	m.AssertNumberOfCalls(t, "PurchaseConfirmed", 1)
	return m.Calls[0].Arguments.Get(1).(notify.Confirmation)
}

func TestPurchaseSendsConfirmation(t *testing.T) {
	n := newMockNotifier(nil)
	f := newFixture(t, Config{}, n)
	id := f.ticketType(t, 5, 20)

	receipt, err := f.svc.Purchase(f.ctx, f.st, id, buyer(2), 2)
	require.Nil(t, err)

	conf := n.wait(t)
	assert.Equal(t, receipt.PurchaseID, conf.PurchaseID)
	assert.Equal(t, "buyer@example.com", conf.Email)
	assert.Equal(t, "Jazz Night", conf.EventTitle)
	assert.Equal(t, "General", conf.TicketType)
	assert.Equal(t, 40.0, conf.TotalPrice)
	assert.Equal(t, f.clock, conf.PurchasedAt)
}

func TestNotificationFailureKeepsPurchase(t *testing.T) {
	n := newMockNotifier(errors.New("smtp down"))
	f := newFixture(t, Config{}, n)
	id := f.ticketType(t, 5, 20)

	receipt, err := f.svc.Purchase(f.ctx, f.st, id, buyer(2), 2)
	require.Nil(t, err)
	n.wait(t)

	_, err = f.svc.GetPurchase(f.ctx, f.st, receipt.PurchaseID, 2)
	assert.Nil(t, err)
	assert.Equal(t, 3, f.available(t, id))
}

type brokenStore struct{}

func (brokenStore) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	return errors.New("connection reset")
}

func (brokenStore) Ping(ctx context.Context) error {
	return nil
}

func TestStorageFailure(t *testing.T) {
	s := NewTicket(Config{}, nil)

	_, err := s.Purchase(context.Background(), brokenStore{}, 1, buyer(2), 1)
	assert.ErrorIs(t, err, ErrTransactionFailure)
	assert.Contains(t, err.Error(), "connection reset")

	_, err = s.CancelPurchase(context.Background(), brokenStore{}, 1, 2)
	assert.ErrorIs(t, err, ErrTransactionFailure)
}
