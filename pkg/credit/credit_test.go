package credit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	v       int
	ok      bool
	saves   int
	failErr error
}

func (m *memStore) Load(context.Context) (int, bool, error) { return m.v, m.ok, nil }

func (m *memStore) Save(_ context.Context, v int) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.v, m.ok = v, true
	m.saves++
	return nil
}

// swapStore simulates another process changing the value before the first
// swap attempt.
type swapStore struct {
	memStore
	race int
}

func (s *swapStore) Swap(_ context.Context, old, new int) (bool, error) {
	if s.race != 0 {
		s.v += s.race
		s.race = 0
	}
	if s.v != old {
		return false, nil
	}
	s.v = new
	return true, nil
}

func TestInitializeDefault(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	l := NewLedger(st)

	v, err := l.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultBalance, v)
	assert.Equal(t, DefaultBalance, st.v, "default must be persisted")
	assert.True(t, st.ok)
}

func TestInitializeStored(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(&memStore{v: 2, ok: true})
	v, err := l.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.True(t, l.HasSufficientBalance(2))
	assert.False(t, l.HasSufficientBalance(3))
}

func TestDebitCreditNetZero(t *testing.T) {
	ctx := context.Background()
	for b := 1; b <= 10; b++ {
		st := &memStore{v: b, ok: true}
		l := NewLedger(st)
		_, err := l.Initialize(ctx)
		require.NoError(t, err)

		require.NoError(t, l.Debit(ctx, 1))
		assert.Equal(t, b-1, st.v)
		require.NoError(t, l.Credit(ctx, 1))
		assert.Equal(t, b, l.Balance())
		assert.Equal(t, b, st.v)
	}
}

func TestDebitClampsAtZero(t *testing.T) {
	ctx := context.Background()
	st := &memStore{v: 0, ok: true}
	l := NewLedger(st)
	_, err := l.Initialize(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Debit(ctx, 1))
	assert.Equal(t, 0, l.Balance())
	assert.Equal(t, 0, st.v)
}

func TestSaveFailureKeepsBalance(t *testing.T) {
	ctx := context.Background()
	st := &memStore{v: 3, ok: true}
	l := NewLedger(st)
	_, err := l.Initialize(ctx)
	require.NoError(t, err)

	st.failErr = errors.New("disk full")
	require.Error(t, l.Debit(ctx, 1))
	assert.Equal(t, 3, l.Balance(), "in-memory value must match the persisted one")
	assert.Equal(t, 3, st.v)
}

func TestSwapRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	st := &swapStore{memStore: memStore{v: 5, ok: true}}
	l := NewLedger(st)
	_, err := l.Initialize(ctx)
	require.NoError(t, err)

	// Another process debits one credit behind our back
	st.race = -1
	require.NoError(t, l.Debit(ctx, 1))
	assert.Equal(t, 3, st.v)
	assert.Equal(t, 3, l.Balance())

	require.NoError(t, l.Credit(ctx, 1))
	assert.Equal(t, 4, st.v)
}

func TestSwapDebitLastCreditTaken(t *testing.T) {
	ctx := context.Background()
	st := &swapStore{memStore: memStore{v: 1, ok: true}}
	l := NewLedger(st)
	_, err := l.Initialize(ctx)
	require.NoError(t, err)

	// Another process spends the last credit before our swap
	st.race = -1
	err = l.Debit(ctx, 1)
	require.ErrorIs(t, err, ErrInsufficient)
	assert.Equal(t, 0, st.v)
	assert.Equal(t, 0, l.Balance())
	assert.False(t, l.HasSufficientBalance(1))
}

func TestNewStoreLocal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credits")
	st, err := NewStore(ctx, "local", path, false)
	require.NoError(t, err)

	l := NewLedger(st)
	v, err := l.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultBalance, v)

	// A new ledger over the same file sees the persisted value
	require.NoError(t, l.Debit(ctx, 1))
	v, err = NewLedger(st).Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultBalance-1, v)
}

func TestNewStoreUnknown(t *testing.T) {
	_, err := NewStore(context.Background(), "etcd", "", false)
	assert.Error(t, err)
}
