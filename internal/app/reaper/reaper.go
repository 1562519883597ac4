package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/store"
	"github.com/equipped-com/platform-api/pkg/logger"
	"github.com/equipped-com/platform-api/pkg/metrics"
)

const defaultSchedule = "@daily"

// Reaper periodically scans for invitations whose expiry has passed without a
// terminal transition. Expiry is derived, so the scan never writes invitation
// rows; it observes, logs, and updates metrics.
type Reaper struct {
	db          *gorm.DB
	invitations *store.InvitationStore
	cron        *cron.Cron
	schedule    string
	now         func() time.Time
	log         *zap.Logger
}

// Option customises the Reaper.
type Option func(*Reaper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reaper) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(r *Reaper) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the scan.
func WithSchedule(spec string) Option {
	return func(r *Reaper) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// New constructs a Reaper with sensible defaults.
func New(db *gorm.DB, invitations *store.InvitationStore, opts ...Option) (*Reaper, error) {
	if db == nil {
		return nil, errors.New("reaper: db is required")
	}
	if invitations == nil {
		return nil, errors.New("reaper: invitation store is required")
	}

	r := &Reaper{
		db:          db,
		invitations: invitations,
		schedule:    defaultSchedule,
		now:         time.Now,
		log:         logger.WithModule("reaper"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.cron == nil {
		r.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return r, nil
}

// Start registers the scan with the cron scheduler and launches it.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.log.Error("expiry scan failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running scan to complete.
func (r *Reaper) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes a single scan, returning how many expired invitations were
// observed. Failures to enrich individual log lines are aggregated and
// returned after the scan completes; they never abort the remaining work.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	started := time.Now()
	scanAt := r.now()

	expired, err := r.invitations.ListExpiredPending(ctx, scanAt)
	if err != nil {
		return 0, fmt.Errorf("reaper: list expired: %w", err)
	}

	var errs error
	slugs := make(map[string]string)
	for i := range expired {
		inv := &expired[i]

		slug, ok := slugs[inv.AccountID]
		if !ok {
			slug, err = r.accountSlug(ctx, inv.AccountID)
			if err != nil {
				errs = multierr.Append(errs, err)
			}
			slugs[inv.AccountID] = slug
		}

		overdue := int(scanAt.Sub(inv.ExpiresAt).Hours() / 24)
		r.log.Info("invitation expired",
			zap.String("invitation_id", inv.ID),
			zap.String("account", slug),
			zap.String("email", inv.Email),
			zap.Time("expires_at", inv.ExpiresAt),
			zap.Int("days_overdue", overdue),
		)
	}

	metrics.ReaperExpiredFound.Set(float64(len(expired)))
	metrics.ReaperRunDuration.Observe(time.Since(started).Seconds())

	r.log.Info("expiry scan complete",
		zap.Int("expired", len(expired)),
		zap.Duration("duration", time.Since(started)),
	)

	return len(expired), errs
}

func (r *Reaper) accountSlug(ctx context.Context, accountID string) (string, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		return accountID, fmt.Errorf("reaper: load account %s: %w", accountID, err)
	}
	return account.Slug, nil
}
