package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/sosrelay/pkg/logger"
)

const (
	defaultCacheSpec  = "@hourly"
	defaultRecordSpec = "@daily"
)

// CachePurger removes expired cache entries.
type CachePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RecordPurger removes notification records older than a cutoff.
type RecordPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner coordinates background maintenance: purging expired cache entries and enforcing
// notification record retention.
type Cleaner struct {
	cache     CachePurger
	records   RecordPurger
	retention int
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger

	cacheSchedule  string
	recordSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCachePurger enables the hourly cache purge.
func WithCachePurger(purger CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = purger
	}
}

// WithRecordRetention enables the daily record purge. days <= 0 keeps records forever.
func WithRecordRetention(purger RecordPurger, days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.records = purger
			cleaner.retention = days
		}
	}
}

// WithCacheSchedule overrides the cron specification for the cache purge.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithRecordSchedule overrides the cron specification for record retention.
func WithRecordSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.recordSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. Jobs without a configured purger are skipped.
func NewCleaner(opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:            time.Now,
		cacheSchedule:  defaultCacheSpec,
		recordSchedule: defaultRecordSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.cache != nil || c.records != nil
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if _, err := c.purgeCache(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.records != nil {
		if _, err := c.cron.AddFunc(c.recordSchedule, func() {
			if _, err := c.purgeRecords(context.Background()); err != nil {
				c.log.Warn("record retention failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.cache != nil {
		if _, err := c.purgeCache(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.records != nil {
		if _, err := c.purgeRecords(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) purgeCache(ctx context.Context) (int64, error) {
	removed, err := c.cache.PurgeExpired(ctx, c.now())
	if err == nil && removed > 0 {
		c.log.Debug("purged expired cache entries", zap.Int64("removed", removed))
	}
	return removed, err
}

func (c *Cleaner) purgeRecords(ctx context.Context) (int64, error) {
	cutoff := c.now().AddDate(0, 0, -c.retention)
	removed, err := c.records.PurgeOlderThan(ctx, cutoff)
	if err == nil {
		c.log.Info("enforced notification record retention",
			zap.Int("retention_days", c.retention),
			zap.Int64("removed", removed),
		)
	}
	return removed, err
}
