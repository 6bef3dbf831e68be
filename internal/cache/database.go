package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/sosrelay/internal/models"
)

var errNoDatabase = errors.New("cache: database store not initialised")

// DatabaseStore keeps cache entries in the cache_entries table. It serves deployments without Redis.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore returns nil when db is nil.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *DatabaseStore) session(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, errNoDatabase
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx), nil
}

// IncrementWithTTL bumps a fixed-window counter. An expired counter restarts at one with a fresh window.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	db, err := s.session(ctx)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	var count int64
	var expiresAt time.Time

	err = db.Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		lookup := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "key = ?", key)
		found := lookup.Error == nil
		if lookup.Error != nil && !errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
			return lookup.Error
		}

		count, expiresAt = 1, now.Add(window)
		if found && entry.ExpiresAt.After(now) {
			previous, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count, expiresAt = previous+1, entry.ExpiresAt
		}

		entry.Key = key
		entry.Value = []byte(strconv.FormatInt(count, 10))
		entry.ExpiresAt = expiresAt
		if found {
			return tx.Save(&entry).Error
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return count, expiresAt.Sub(now), nil
}

// Set upserts a value. A non-positive ttl stores it without expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}

	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

// Get reports a miss for absent and expired keys. Expired rows are left for PurgeExpired.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db, err := s.session(ctx)
	if err != nil {
		return nil, false, err
	}

	var entry models.CacheEntry
	switch err := db.Take(&entry, "key = ?", key).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	if !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(s.now()) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	db, err := s.session(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}
	return db.Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// PurgeExpired deletes entries that expired before now and reports how many were removed.
// Entries without expiry are kept.
func (s *DatabaseStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	db, err := s.session(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Where("expires_at > ? AND expires_at < ?", time.Time{}, now.UTC()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}
