package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ticketing-backend/model"
)

// NewMemory returns an in-process Store. Transactions run one at a time and
// a failed transaction restores the state it started from.
func NewMemory() *Memory {
	return &Memory{state: newMemoryState()}
}

// Memory is the in-process implementation of Store.
type Memory struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	events       map[int64]model.Event
	ticketTypes  map[int64]model.TicketType
	reservations map[int64]model.Reservation
	purchases    map[int64]model.Purchase
	lastID       int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		events:       make(map[int64]model.Event),
		ticketTypes:  make(map[int64]model.TicketType),
		reservations: make(map[int64]model.Reservation),
		purchases:    make(map[int64]model.Purchase),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.ticketTypes {
		c.ticketTypes[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	c.lastID = s.lastID
	return c
}

func (s *memoryState) nextID() int64 {
	s.lastID++
	return s.lastID
}

// AddEvent seeds an event. Events are owned by the event service, so the
// ticket store never creates them itself.
func (m *Memory) AddEvent(e model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.events[e.EventID] = e
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) WithTx(ctx context.Context, fn func(Tx) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := m.state.clone()
	defer func() {
		if p := recover(); p != nil {
			m.state = snapshot
			panic(p)
		}
	}()

	if err := fn(&memoryTx{s: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

type memoryTx struct {
	s *memoryState
}

func (t *memoryTx) FetchEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	e, ok := t.s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (t *memoryTx) CreateTicketType(ctx context.Context, tt *model.TicketType) (int64, error) {
	c := *tt
	c.TicketTypeID = t.s.nextID()
	t.s.ticketTypes[c.TicketTypeID] = c
	return c.TicketTypeID, nil
}

func (t *memoryTx) FetchTicketType(ctx context.Context, ticketTypeID int64, forUpdate bool) (*model.TicketType, error) {
	tt, ok := t.s.ticketTypes[ticketTypeID]
	if !ok {
		return nil, ErrNotFound
	}
	return &tt, nil
}

func (t *memoryTx) ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error) {
	tts := []model.TicketType{}
	for _, tt := range t.s.ticketTypes {
		if tt.EventID == eventID {
			tts = append(tts, tt)
		}
	}
	sort.Slice(tts, func(i, j int) bool { return tts[i].TicketTypeID < tts[j].TicketTypeID })
	return tts, nil
}

func (t *memoryTx) UpdateTicketType(ctx context.Context, tt *model.TicketType) (int64, error) {
	if _, ok := t.s.ticketTypes[tt.TicketTypeID]; !ok {
		return 0, nil
	}
	t.s.ticketTypes[tt.TicketTypeID] = *tt
	return 1, nil
}

func (t *memoryTx) DeleteTicketType(ctx context.Context, ticketTypeID int64) (int64, error) {
	if _, ok := t.s.ticketTypes[ticketTypeID]; !ok {
		return 0, nil
	}
	delete(t.s.ticketTypes, ticketTypeID)
	return 1, nil
}

func (t *memoryTx) DecrementQuantity(ctx context.Context, ticketTypeID int64, qty int) (int64, error) {
	tt, ok := t.s.ticketTypes[ticketTypeID]
	if !ok || tt.Quantity < qty {
		return 0, nil
	}
	tt.Quantity -= qty
	t.s.ticketTypes[ticketTypeID] = tt
	return 1, nil
}

func (t *memoryTx) IncrementQuantity(ctx context.Context, ticketTypeID int64, qty int) (int64, error) {
	tt, ok := t.s.ticketTypes[ticketTypeID]
	if !ok || tt.Quantity+qty > tt.Capacity {
		return 0, nil
	}
	tt.Quantity += qty
	t.s.ticketTypes[ticketTypeID] = tt
	return 1, nil
}

func (t *memoryTx) ReleaseExpiredReservations(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, r := range t.s.reservations {
		if r.Expired(now) {
			delete(t.s.reservations, id)
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) ReservedQuantity(ctx context.Context, ticketTypeID, excludeUserID int64, now time.Time) (int, error) {
	total := 0
	for _, r := range t.s.reservations {
		if r.TicketTypeID == ticketTypeID && r.UserID != excludeUserID && !r.Expired(now) {
			total += r.Quantity
		}
	}
	return total, nil
}

func (t *memoryTx) CreateReservation(ctx context.Context, r *model.Reservation) (int64, error) {
	c := *r
	c.ReservationID = t.s.nextID()
	t.s.reservations[c.ReservationID] = c
	return c.ReservationID, nil
}

func (t *memoryTx) DeleteReservations(ctx context.Context, ticketTypeID, userID int64) (int64, error) {
	var n int64
	for id, r := range t.s.reservations {
		if r.TicketTypeID == ticketTypeID && r.UserID == userID {
			delete(t.s.reservations, id)
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) CountPurchases(ctx context.Context, ticketTypeID int64) (int, error) {
	n := 0
	for _, p := range t.s.purchases {
		if p.TicketTypeID == ticketTypeID {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) UserPurchasedQuantity(ctx context.Context, userID, eventID int64) (int, error) {
	total := 0
	for _, p := range t.s.purchases {
		if p.UserID != userID || p.CancelledAt != nil {
			continue
		}
		if tt, ok := t.s.ticketTypes[p.TicketTypeID]; ok && tt.EventID == eventID {
			total += p.Quantity
		}
	}
	return total, nil
}

func (t *memoryTx) CreatePurchase(ctx context.Context, p *model.Purchase) (int64, error) {
	c := *p
	c.PurchaseID = t.s.nextID()
	t.s.purchases[c.PurchaseID] = c
	return c.PurchaseID, nil
}

func (t *memoryTx) FetchPurchase(ctx context.Context, purchaseID, userID int64) (*model.PurchaseDetail, error) {
	p, ok := t.s.purchases[purchaseID]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	pd := t.detail(p)
	return &pd, nil
}

func (t *memoryTx) CancelPurchase(ctx context.Context, purchaseID, userID int64, at time.Time) (int64, error) {
	p, ok := t.s.purchases[purchaseID]
	if !ok || p.UserID != userID || p.CancelledAt != nil {
		return 0, nil
	}
	p.CancelledAt = &at
	t.s.purchases[purchaseID] = p
	return 1, nil
}

func (t *memoryTx) ListPurchases(ctx context.Context, userID int64, includeCancelled bool) ([]model.PurchaseDetail, error) {
	pds := []model.PurchaseDetail{}
	for _, p := range t.s.purchases {
		if p.UserID != userID || (!includeCancelled && p.CancelledAt != nil) {
			continue
		}
		pds = append(pds, t.detail(p))
	}
	sort.Slice(pds, func(i, j int) bool {
		if pds[i].PurchaseDate.Equal(pds[j].PurchaseDate) {
			return pds[i].PurchaseID > pds[j].PurchaseID
		}
		return pds[i].PurchaseDate.After(pds[j].PurchaseDate)
	})
	return pds, nil
}

func (t *memoryTx) detail(p model.Purchase) model.PurchaseDetail {
	pd := model.PurchaseDetail{Purchase: p}
	if tt, ok := t.s.ticketTypes[p.TicketTypeID]; ok {
		pd.TicketTypeName = tt.Name
		pd.Price = tt.Price
		if e, ok := t.s.events[tt.EventID]; ok {
			pd.EventID = e.EventID
			pd.EventTitle = e.Title
			pd.EventDate = e.StartsAt
		}
	}
	pd.Fill()
	return pd
}
