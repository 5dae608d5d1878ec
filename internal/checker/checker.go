// Package checker runs one reconciliation check end to end: read parents and
// children, find orphans, render the report and deliver it.
package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/logger"
	"github.com/dbsmedya/straycheck/internal/notify"
	"github.com/dbsmedya/straycheck/internal/reconcile"
	"github.com/dbsmedya/straycheck/internal/report"
	"github.com/dbsmedya/straycheck/internal/source"
	"github.com/dbsmedya/straycheck/internal/types"
)

// Default per-operation timeouts.
const (
	DefaultSourceTimeout = 60 * time.Second
	DefaultNotifyTimeout = 120 * time.Second
)

// Result describes one run of a check.
type Result struct {
	CheckName   string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Stats       reconcile.Stats
	Report      *types.OrphanReport
	Message     notify.Message
	DryRun      bool
	Delivered   bool
	// DeliveryError is set when the report was built but could not be sent.
	DeliveryError error
}

// Checker runs a single configured check.
type Checker struct {
	name          string
	check         config.CheckConfig
	source        source.RecordSource
	notifier      notify.Notifier
	logger        *logger.Logger
	location      *time.Location
	sourceTimeout time.Duration
	notifyTimeout time.Duration
	dryRun        bool
}

// NewChecker binds a check to its record source and notifier.
func NewChecker(name string, check *config.CheckConfig, src source.RecordSource, n notify.Notifier, log *logger.Logger) (*Checker, error) {
	if check == nil {
		return nil, fmt.Errorf("check config is nil")
	}
	if src == nil {
		return nil, fmt.Errorf("record source is nil")
	}
	if n == nil {
		return nil, fmt.Errorf("notifier is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	loc, err := check.Report.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", check.Report.Timezone, err)
	}

	return &Checker{
		name:          name,
		check:         *check,
		source:        src,
		notifier:      n,
		logger:        log.WithCheck(name),
		location:      loc,
		sourceTimeout: DefaultSourceTimeout,
		notifyTimeout: DefaultNotifyTimeout,
	}, nil
}

// SetTimeouts overrides the per-read and delivery timeouts. Zero keeps the current value.
func (c *Checker) SetTimeouts(sourceTimeout, notifyTimeout time.Duration) {
	if sourceTimeout > 0 {
		c.sourceTimeout = sourceTimeout
	}
	if notifyTimeout > 0 {
		c.notifyTimeout = notifyTimeout
	}
}

// SetDryRun disables delivery. The report and message are still built.
func (c *Checker) SetDryRun(dryRun bool) {
	c.dryRun = dryRun
}

// Location returns the report time zone.
func (c *Checker) Location() *time.Location {
	return c.location
}

// Run executes the check. The returned Result is non-nil even when an error
// is returned and holds whatever was computed before the failure.
func (c *Checker) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		CheckName: c.name,
		StartedAt: time.Now(),
		DryRun:    c.dryRun,
	}
	defer func() {
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(result.StartedAt)
	}()

	c.logger.Infow("Starting check",
		"parent_layer", c.check.Parent.Layer,
		"child_layer", c.check.Child.Layer,
		"dry_run", c.dryRun,
	)

	parents, err := c.fetchParents(ctx)
	if err != nil {
		c.logger.Errorw("Failed to read parent records", "error", err)
		return result, err
	}

	children, err := c.fetchChildren(ctx)
	if err != nil {
		c.logger.Errorw("Failed to read child records", "error", err)
		return result, err
	}

	orphans := reconcile.FindOrphansWith(parents, children,
		reconcile.Options{NormalizeIDs: c.check.NormalizeIDs},
		func(child types.ChildRecord) {
			c.logger.Debugw("Adding object to missing parent records",
				"object_id", child.ObjectID,
				"creator", child.CreatorName,
			)
		})
	result.Report = orphans
	result.Stats = reconcile.Summarize(parents, children, orphans)

	c.logger.Infow("Reconciliation complete",
		"parents", result.Stats.Parents,
		"children", result.Stats.Children,
		"orphans", result.Stats.Orphans,
	)

	msg := notify.Select(c.check.Notification, orphans.Len())
	body, err := report.RenderHTML(orphans, c.location)
	if err != nil {
		c.logger.Errorw("Failed to render report", "error", err)
		return result, fmt.Errorf("check %s: %w", c.name, err)
	}
	msg.HTMLBody = body
	result.Message = msg

	if c.dryRun {
		c.logger.Infow("Dry run: notification not sent", "subject", msg.Subject)
		return result, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
	defer cancel()

	if err := c.notifier.Send(sendCtx, msg); err != nil {
		if !errors.Is(err, notify.ErrDelivery) {
			err = fmt.Errorf("%w: %w", notify.ErrDelivery, err)
		}
		result.DeliveryError = err
		c.logger.Errorw("Failed to send notification",
			"subject", msg.Subject,
			"error", err,
		)
		return result, fmt.Errorf("check %s: %w", c.name, err)
	}

	result.Delivered = true
	c.logger.Infow("Check finished", "subject", msg.Subject, "orphans", result.Stats.Orphans)
	return result, nil
}

func (c *Checker) fetchParents(ctx context.Context) (types.ParentIDSet, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.sourceTimeout)
	defer cancel()

	parents, err := c.source.FetchParentIDs(readCtx)
	if err != nil {
		return nil, unavailable(c.name, "parent layer", err)
	}
	return parents, nil
}

func (c *Checker) fetchChildren(ctx context.Context) ([]types.ChildRecord, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.sourceTimeout)
	defer cancel()

	children, err := c.source.FetchChildren(readCtx)
	if err != nil {
		return nil, unavailable(c.name, "child layer", err)
	}
	return children, nil
}

func unavailable(check, what string, err error) error {
	if errors.Is(err, source.ErrUnavailable) {
		return fmt.Errorf("check %s: %s: %w", check, what, err)
	}
	return fmt.Errorf("check %s: %s: %w: %w", check, what, source.ErrUnavailable, err)
}
