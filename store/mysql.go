package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ticketing-backend/model"
)

const (
	ticketTypeTable  = "ticket_types"
	reservationTable = "ticket_reservations"
	purchaseTable    = "ticket_purchases"
)

var ticketTypeCols = []string{"event_id", "name", "price", "capacity", "quantity", "created_at"}
var reservationCols = []string{"ticket_type_id", "user_id", "quantity", "expiration_time"}
var purchaseCols = []string{"user_id", "ticket_type_id", "quantity", "purchase_date"}

const purchaseDetailQuery = `SELECT tp.id, tp.user_id, tp.ticket_type_id, tp.quantity, tp.purchase_date, tp.cancelled_at,
		e.id, e.title, e.date, t.name, t.price
		FROM ticket_purchases tp
		JOIN ticket_types t ON tp.ticket_type_id = t.id
		JOIN events e ON t.event_id = e.id`

// NewMySQL returns a Store backed by db.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

// MySQL is the database/sql implementation of Store.
type MySQL struct {
	db *sql.DB
}

func (m *MySQL) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQL) WithTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("withTx: error begining db transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("withTx: error rolling back: %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("withTx: error commiting transaction: %w", err)
	}
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) FetchEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	var e model.Event
	err := t.tx.QueryRowContext(ctx, `SELECT id, title, date, organizer_id FROM events WHERE id = ?`, eventID).
		Scan(&e.EventID, &e.Title, &e.StartsAt, &e.OrganizerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetchEvent: error scanning event %d: %w", eventID, err)
	}
	return &e, nil
}

func (t *mysqlTx) CreateTicketType(ctx context.Context, tt *model.TicketType) (int64, error) {
	values := []interface{}{
		tt.EventID,
		tt.Name,
		tt.Price,
		tt.Capacity,
		tt.Quantity,
		tt.CreatedDate,
	}

	id, err := create(ctx, t.tx, ticketTypeTable, ticketTypeCols, values)
	if err != nil {
		return -1, fmt.Errorf("createTicketType: error inserting ticket type for event %d: %w", tt.EventID, err)
	}
	return id, nil
}

func (t *mysqlTx) FetchTicketType(ctx context.Context, ticketTypeID int64, forUpdate bool) (*model.TicketType, error) {
	q := `SELECT id, event_id, name, price, capacity, quantity, created_at FROM ticket_types WHERE id = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var tt model.TicketType
	err := t.tx.QueryRowContext(ctx, q, ticketTypeID).Scan(
		&tt.TicketTypeID,
		&tt.EventID,
		&tt.Name,
		&tt.Price,
		&tt.Capacity,
		&tt.Quantity,
		&tt.CreatedDate,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetchTicketType: error scanning ticket type %d: %w", ticketTypeID, err)
	}
	return &tt, nil
}

func (t *mysqlTx) ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, event_id, name, price, capacity, quantity, created_at FROM ticket_types WHERE event_id = ? ORDER BY id`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("listTicketTypes: error querying ticket types: %w", err)
	}
	defer rows.Close()

	tts := []model.TicketType{}
	for rows.Next() {
		var tt model.TicketType
		err := rows.Scan(
			&tt.TicketTypeID,
			&tt.EventID,
			&tt.Name,
			&tt.Price,
			&tt.Capacity,
			&tt.Quantity,
			&tt.CreatedDate,
		)
		if err != nil {
			return nil, fmt.Errorf("listTicketTypes: error scanning ticket type: %w", err)
		}
		tts = append(tts, tt)
	}
	return tts, rows.Err()
}

func (t *mysqlTx) UpdateTicketType(ctx context.Context, tt *model.TicketType) (int64, error) {
	rows, err := update(
		ctx,
		t.tx,
		ticketTypeTable,
		[]string{"name", "price", "capacity", "quantity"},
		[]interface{}{tt.Name, tt.Price, tt.Capacity, tt.Quantity},
		[]string{"id"},
		[]interface{}{tt.TicketTypeID},
	)
	if err != nil {
		return -1, fmt.Errorf("updateTicketType: error updating ticket type %d: %w", tt.TicketTypeID, err)
	}
	return rows, nil
}

func (t *mysqlTx) DeleteTicketType(ctx context.Context, ticketTypeID int64) (int64, error) {
	return exec(ctx, t.tx, `DELETE FROM ticket_types WHERE id = ?`, ticketTypeID)
}

func (t *mysqlTx) DecrementQuantity(ctx context.Context, ticketTypeID int64, qty int) (int64, error) {
	return exec(ctx, t.tx,
		`UPDATE ticket_types SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`,
		qty, ticketTypeID, qty)
}

func (t *mysqlTx) IncrementQuantity(ctx context.Context, ticketTypeID int64, qty int) (int64, error) {
	return exec(ctx, t.tx,
		`UPDATE ticket_types SET quantity = quantity + ? WHERE id = ? AND quantity + ? <= capacity`,
		qty, ticketTypeID, qty)
}

func (t *mysqlTx) ReleaseExpiredReservations(ctx context.Context, now time.Time) (int64, error) {
	return exec(ctx, t.tx, `DELETE FROM ticket_reservations WHERE expiration_time <= ?`, now)
}

func (t *mysqlTx) ReservedQuantity(ctx context.Context, ticketTypeID, excludeUserID int64, now time.Time) (int, error) {
	return sum(ctx, t.tx,
		`SELECT COALESCE(SUM(quantity), 0) FROM ticket_reservations WHERE ticket_type_id = ? AND expiration_time > ? AND user_id <> ?`,
		ticketTypeID, now, excludeUserID)
}

func (t *mysqlTx) CreateReservation(ctx context.Context, r *model.Reservation) (int64, error) {
	values := []interface{}{
		r.TicketTypeID,
		r.UserID,
		r.Quantity,
		r.ExpiresAt,
	}

	id, err := create(ctx, t.tx, reservationTable, reservationCols, values)
	if err != nil {
		return -1, fmt.Errorf("createReservation: error inserting reservation for user %d: %w", r.UserID, err)
	}
	return id, nil
}

func (t *mysqlTx) DeleteReservations(ctx context.Context, ticketTypeID, userID int64) (int64, error) {
	return exec(ctx, t.tx, `DELETE FROM ticket_reservations WHERE ticket_type_id = ? AND user_id = ?`, ticketTypeID, userID)
}

// CountPurchases counts every purchase row of the ticket type, cancelled
// ones included.
func (t *mysqlTx) CountPurchases(ctx context.Context, ticketTypeID int64) (int, error) {
	return sum(ctx, t.tx, `SELECT COUNT(*) FROM ticket_purchases WHERE ticket_type_id = ?`, ticketTypeID)
}

func (t *mysqlTx) UserPurchasedQuantity(ctx context.Context, userID, eventID int64) (int, error) {
	return sum(ctx, t.tx,
		`SELECT COALESCE(SUM(tp.quantity), 0) FROM ticket_purchases tp
		JOIN ticket_types t ON tp.ticket_type_id = t.id
		WHERE tp.user_id = ? AND t.event_id = ? AND tp.cancelled_at IS NULL`,
		userID, eventID)
}

func (t *mysqlTx) CreatePurchase(ctx context.Context, p *model.Purchase) (int64, error) {
	values := []interface{}{
		p.UserID,
		p.TicketTypeID,
		p.Quantity,
		p.PurchaseDate,
	}

	id, err := create(ctx, t.tx, purchaseTable, purchaseCols, values)
	if err != nil {
		return -1, fmt.Errorf("createPurchase: error inserting purchase for user %d: %w", p.UserID, err)
	}
	return id, nil
}

func (t *mysqlTx) FetchPurchase(ctx context.Context, purchaseID, userID int64) (*model.PurchaseDetail, error) {
	rows, err := t.tx.QueryContext(ctx, purchaseDetailQuery+` WHERE tp.id = ? AND tp.user_id = ?`, purchaseID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetchPurchase: error querying purchase %d: %w", purchaseID, err)
	}

	pds, err := purchaseDetailsScanner(rows)
	if err != nil {
		return nil, fmt.Errorf("fetchPurchase: %w", err)
	}
	if len(pds) == 0 {
		return nil, ErrNotFound
	}
	return &pds[0], nil
}

func (t *mysqlTx) CancelPurchase(ctx context.Context, purchaseID, userID int64, at time.Time) (int64, error) {
	return exec(ctx, t.tx,
		`UPDATE ticket_purchases SET cancelled_at = ? WHERE id = ? AND user_id = ? AND cancelled_at IS NULL`,
		at, purchaseID, userID)
}

func (t *mysqlTx) ListPurchases(ctx context.Context, userID int64, includeCancelled bool) ([]model.PurchaseDetail, error) {
	q := purchaseDetailQuery + ` WHERE tp.user_id = ?`
	if !includeCancelled {
		q += ` AND tp.cancelled_at IS NULL`
	}
	q += ` ORDER BY tp.purchase_date DESC, tp.id DESC`

	rows, err := t.tx.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("listPurchases: error querying purchases of user %d: %w", userID, err)
	}

	pds, err := purchaseDetailsScanner(rows)
	if err != nil {
		return nil, fmt.Errorf("listPurchases: %w", err)
	}
	return pds, nil
}

func purchaseDetailsScanner(rows *sql.Rows) ([]model.PurchaseDetail, error) {
	defer rows.Close()

	pds := []model.PurchaseDetail{}
	for rows.Next() {
		var pd model.PurchaseDetail
		var cancelledAt sql.NullTime
		err := rows.Scan(
			&pd.PurchaseID,
			&pd.UserID,
			&pd.TicketTypeID,
			&pd.Quantity,
			&pd.PurchaseDate,
			&cancelledAt,
			&pd.EventID,
			&pd.EventTitle,
			&pd.EventDate,
			&pd.TicketTypeName,
			&pd.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("purchaseDetailsScanner: error scanning purchase: %w", err)
		}
		if cancelledAt.Valid {
			at := cancelledAt.Time
			pd.CancelledAt = &at
		}
		pd.Fill()
		pds = append(pds, pd)
	}
	return pds, rows.Err()
}

func create(ctx context.Context, tx *sql.Tx, table string, cols []string, values []interface{}) (int64, error) {
	var params []string

	for range cols {
		params = append(params, "?")
	}

	tsql := fmt.Sprintf(`INSERT INTO %s(%s) VALUES (%s);`, table, strings.Join(cols, ", "), strings.Join(params, ", "))

	stmt, err := tx.PrepareContext(ctx, tsql)
	if err != nil {
		return -1, fmt.Errorf("create: error preparing sql query: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, values...)
	if err != nil {
		return -1, fmt.Errorf("create: unable to insert record in %s: %w", table, err)
	}

	return result.LastInsertId()
}

func update(ctx context.Context, tx *sql.Tx, table string, cols []string, values []interface{}, column []string, value []interface{}) (int64, error) {
	values = append(values, value...)
	var set []string

	for _, col := range cols {
		set = append(set, fmt.Sprintf("%s = ?", col))
	}

	var conds []string

	for _, c := range column {
		conds = append(conds, fmt.Sprintf("%s = ?", c))
	}

	tsql := fmt.Sprintf(`UPDATE %s SET %s WHERE %s;`, table, strings.Join(set, ", "), strings.Join(conds, " AND "))

	stmt, err := tx.PrepareContext(ctx, tsql)
	if err != nil {
		return -1, fmt.Errorf("update: error preparing sql query: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, values...)
	if err != nil {
		return -1, fmt.Errorf("update: unable to update record in %s: %w", table, err)
	}

	return result.RowsAffected()
}

func exec(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return -1, fmt.Errorf("exec: error executing %q: %w", firstLine(query), err)
	}
	return result.RowsAffected()
}

func sum(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (int, error) {
	var total int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum: error querying %q: %w", firstLine(query), err)
	}
	return total, nil
}

func firstLine(query string) string {
	if i := strings.IndexByte(query, '\n'); i >= 0 {
		return query[:i]
	}
	return query
}
