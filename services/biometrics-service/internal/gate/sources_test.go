package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func TestPostgresSource(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u2").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u3").
		WillReturnError(errors.New("connection refused"))

	src := NewPostgresSource(mock)
	ok, err := src.HasCompletedPayment(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = src.HasCompletedPayment(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = src.HasCompletedPayment(context.Background(), "u3")
	assert.Error(t, err)

	_, err = src.HasCompletedPayment(context.Background(), " ")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeIter struct {
	items []*stripe.PaymentIntent
	err   error
	pos   int
}

func (f *fakeIter) Next() bool {
	if f.pos >= len(f.items) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeIter) PaymentIntent() *stripe.PaymentIntent { return f.items[f.pos-1] }

func (f *fakeIter) Err() error { return f.err }

func TestStripeSource(t *testing.T) {
	var queries []string
	results := map[string]*fakeIter{
		"u1":  {items: []*stripe.PaymentIntent{{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded}}},
		"u2":  {},
		"u3":  {err: errors.New("stripe unavailable")},
		"o'b": {},
	}
	var current string
	src := newStripeSource("", func(p *stripe.PaymentIntentSearchParams) paymentIntentIter {
		queries = append(queries, p.Query)
		return results[current]
	})

	for _, tc := range []struct {
		user    string
		want    bool
		wantErr bool
	}{
		{user: "u1", want: true},
		{user: "u2", want: false},
		{user: "u3", wantErr: true},
		{user: "o'b", want: false},
	} {
		current = tc.user
		got, err := src.HasCompletedPayment(context.Background(), tc.user)
		if tc.wantErr {
			assert.Error(t, err, tc.user)
			continue
		}
		require.NoError(t, err, tc.user)
		assert.Equal(t, tc.want, got, tc.user)
	}
	require.Len(t, queries, 4)
	assert.Equal(t, "status:'succeeded' AND metadata['user_id']:'u1'", queries[0])
	assert.Equal(t, `status:'succeeded' AND metadata['user_id']:'o\'b'`, queries[3])

	_, err := NewStripeSource("", "user_id")
	assert.Error(t, err)
}

func TestCachedSourceCachesCompletedOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := map[string]int{}
	inner := SourceFunc(func(_ context.Context, userID string) (bool, error) {
		calls[userID]++
		return userID == "paid", nil
	})
	src := NewCachedSource(inner, rdb, time.Minute, quietLogger())

	for i := 0; i < 3; i++ {
		ok, err := src.HasCompletedPayment(context.Background(), "paid")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = src.HasCompletedPayment(context.Background(), "unpaid")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, calls["paid"])
	assert.Equal(t, 3, calls["unpaid"])
	assert.True(t, mr.Exists("biometrics:payment:paid"))
	assert.False(t, mr.Exists("biometrics:payment:unpaid"))

	mr.FastForward(2 * time.Minute)
	_, err := src.HasCompletedPayment(context.Background(), "paid")
	require.NoError(t, err)
	assert.Equal(t, 2, calls["paid"])
}

func TestCachedSourceFallsThroughWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	src := NewCachedSource(StaticSource{Completed: true}, rdb, time.Minute, quietLogger())
	ok, err := src.HasCompletedPayment(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}
