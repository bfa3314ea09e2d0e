package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// NewBalanceStore returns a credit balance store backed by the settings table.
func (s *Store) NewBalanceStore(key string) *balanceStore {
	return &balanceStore{
		store: s,
		key:   key,
	}
}

type balanceStore struct {
	store *Store
	key   string
}

func (b *balanceStore) Load(ctx context.Context) (int, bool, error) {
	setting, err := b.store.GetSetting(ctx, b.key)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err := strconv.Atoi(setting.Value)
	if err != nil {
		return 0, false, fmt.Errorf("storage: invalid balance %q: %w", setting.Value, err)
	}
	return v, true, nil
}

func (b *balanceStore) Save(ctx context.Context, v int) error {
	return b.store.SetSetting(ctx, &Setting{
		ID:    b.key,
		Value: strconv.Itoa(v),
	})
}

func (b *balanceStore) Swap(ctx context.Context, old, new int) (bool, error) {
	return b.store.SwapSetting(ctx, b.key, strconv.Itoa(old), strconv.Itoa(new))
}
