// Package idempotency remembers the outcome of purchase requests sent with an
// Idempotency-Key so a retried request does not buy twice.
package idempotency

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"

	"ticketing-backend/model"
)

// ErrInProgress is returned when a request with the same key has not
// finished yet.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// ErrKeyMismatch is returned when a key is reused for a different purchase.
var ErrKeyMismatch = errors.New("idempotency key was used for a different purchase")

// entry is stored under a claimed key. Receipt stays nil until the purchase
// completes.
type entry struct {
	TicketTypeID int64          `json:"ticket_type_id"`
	Quantity     int            `json:"quantity"`
	Receipt      *model.Receipt `json:"receipt,omitempty"`
}

type Keys struct {
	client  *redis.Client
	lockTTL time.Duration
	ttl     time.Duration
}

// NewKeys keeps a pending claim for lockTTL and a completed receipt for ttl.
func NewKeys(client *redis.Client, lockTTL, ttl time.Duration) *Keys {
	return &Keys{
		client:  client,
		lockTTL: lockTTL,
		ttl:     ttl,
	}
}

func redisKey(userID int64, key string) string {
	return fmt.Sprintf("purchase-%d-%s", userID, key)
}

// Begin claims key for a purchase of quantity tickets of ticketTypeID. When
// an earlier request with the key already completed, its receipt is returned
// for replay.
func (k *Keys) Begin(userID int64, key string, ticketTypeID int64, quantity int) (*model.Receipt, error) {
	rk := redisKey(userID, key)

	claim, err := json.Marshal(entry{TicketTypeID: ticketTypeID, Quantity: quantity})
	if err != nil {
		return nil, fmt.Errorf("begin: unable to encode claim %s: %w", rk, err)
	}

	claimed, err := k.client.SetNX(rk, claim, k.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("begin: unable to claim key %s: %w", rk, err)
	}
	if claimed {
		return nil, nil
	}

	val, err := k.client.Get(rk).Result()
	if err == redis.Nil {
		// Expired between the two calls.
		return k.Begin(userID, key, ticketTypeID, quantity)
	}
	if err != nil {
		return nil, fmt.Errorf("begin: unable to read key %s: %w", rk, err)
	}

	var e entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return nil, fmt.Errorf("begin: corrupt entry under %s: %w", rk, err)
	}
	if e.TicketTypeID != ticketTypeID || e.Quantity != quantity {
		return nil, fmt.Errorf("%w: %s holds %d of ticket type %d", ErrKeyMismatch, key, e.Quantity, e.TicketTypeID)
	}
	if e.Receipt == nil {
		return nil, ErrInProgress
	}

	e.Receipt.Replayed = true
	return e.Receipt, nil
}

// Complete stores the receipt of a successful request under key.
func (k *Keys) Complete(userID int64, key string, r *model.Receipt) error {
	rk := redisKey(userID, key)

	b, err := json.Marshal(entry{TicketTypeID: r.TicketTypeID, Quantity: r.Quantity, Receipt: r})
	if err != nil {
		return fmt.Errorf("complete: unable to encode receipt %d: %w", r.PurchaseID, err)
	}

	if err := k.client.Set(rk, b, k.ttl).Err(); err != nil {
		return fmt.Errorf("complete: unable to save key %s: %w", rk, err)
	}
	return nil
}

// Abort releases key after a failed request so it can be retried.
func (k *Keys) Abort(userID int64, key string) error {
	rk := redisKey(userID, key)
	if err := k.client.Del(rk).Err(); err != nil {
		return fmt.Errorf("abort: unable to release key %s: %w", rk, err)
	}
	return nil
}
