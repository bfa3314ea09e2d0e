package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Setting struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Value     string
}

func (s *Store) GetSetting(ctx context.Context, id string) (*Setting, error) {
	var v Setting
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get setting %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetSetting(ctx context.Context, v *Setting) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set setting %s: %w", v.ID, err)
	}
	return nil
}

// SwapSetting replaces the value of a setting only if it still holds old.
func (s *Store) SwapSetting(ctx context.Context, id, old, new string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&Setting{}).Where("id = ? AND value = ?", id, old).Update("value", new)
	if q.Error != nil {
		return false, fmt.Errorf("storage: failed to swap setting %s: %w", id, q.Error)
	}
	return q.RowsAffected == 1, nil
}
