package idempotency

import (
	"testing"
	"time"

	"ticketing-backend/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeys(t *testing.T) (*Keys, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.Nil(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewKeys(client, time.Minute, time.Hour), mr
}

func TestBeginCompleteReplay(t *testing.T) {
	k, mr := newKeys(t)

	r, err := k.Begin(7, "abc", 3, 2)
	require.Nil(t, err)
	assert.Nil(t, r)
	assert.Equal(t, time.Minute, mr.TTL("purchase-7-abc"))

	_, err = k.Begin(7, "abc", 3, 2)
	assert.Equal(t, ErrInProgress, err)

	receipt := &model.Receipt{PurchaseID: 11, TicketTypeID: 3, Quantity: 2, TotalPrice: 50}
	require.Nil(t, k.Complete(7, "abc", receipt))
	assert.Equal(t, time.Hour, mr.TTL("purchase-7-abc"))

	r, err = k.Begin(7, "abc", 3, 2)
	require.Nil(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Replayed)
	assert.Equal(t, int64(11), r.PurchaseID)
	assert.Equal(t, 50.0, r.TotalPrice)

	r, err = k.Begin(8, "abc", 3, 2)
	require.Nil(t, err)
	assert.Nil(t, r, "keys are scoped per user")
}

func TestBeginRejectsDifferentPurchase(t *testing.T) {
	k, _ := newKeys(t)

	_, err := k.Begin(7, "abc", 3, 2)
	require.Nil(t, err)

	_, err = k.Begin(7, "abc", 4, 2)
	assert.ErrorIs(t, err, ErrKeyMismatch, "pending claim, other ticket type")
	_, err = k.Begin(7, "abc", 3, 5)
	assert.ErrorIs(t, err, ErrKeyMismatch, "pending claim, other quantity")

	require.Nil(t, k.Complete(7, "abc", &model.Receipt{PurchaseID: 11, TicketTypeID: 3, Quantity: 2}))

	r, err := k.Begin(7, "abc", 4, 2)
	assert.ErrorIs(t, err, ErrKeyMismatch, "completed claim, other ticket type")
	assert.Nil(t, r)
	_, err = k.Begin(7, "abc", 3, 1)
	assert.ErrorIs(t, err, ErrKeyMismatch, "completed claim, other quantity")
}

func TestPendingClaimExpiresBeforeReceipt(t *testing.T) {
	k, mr := newKeys(t)

	_, err := k.Begin(7, "abc", 3, 2)
	require.Nil(t, err)

	mr.FastForward(2 * time.Minute)

	r, err := k.Begin(7, "abc", 3, 2)
	assert.Nil(t, err, "an abandoned claim does not block retries for the receipt TTL")
	assert.Nil(t, r)
}

func TestAbortReleasesKey(t *testing.T) {
	k, _ := newKeys(t)

	_, err := k.Begin(7, "abc", 3, 2)
	require.Nil(t, err)
	require.Nil(t, k.Abort(7, "abc"))

	r, err := k.Begin(7, "abc", 4, 1)
	assert.Nil(t, err)
	assert.Nil(t, r)
}

func TestKeysExpire(t *testing.T) {
	k, mr := newKeys(t)

	require.Nil(t, k.Complete(7, "abc", &model.Receipt{PurchaseID: 1, TicketTypeID: 3, Quantity: 2}))
	mr.FastForward(2 * time.Hour)

	r, err := k.Begin(7, "abc", 3, 2)
	assert.Nil(t, err)
	assert.Nil(t, r)
}

func TestCorruptEntry(t *testing.T) {
	k, mr := newKeys(t)

	require.Nil(t, mr.Set("purchase-7-abc", "{not json"))
	_, err := k.Begin(7, "abc", 3, 2)
	assert.NotNil(t, err)
	assert.NotErrorIs(t, err, ErrKeyMismatch)
}
