package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"

	"github.com/tbrandt/iiobridge/internal/configdb"
	"github.com/tbrandt/iiobridge/internal/hwmon"
	"github.com/tbrandt/iiobridge/internal/sensor"
)

// Options carries the engine's tunable policy.
type Options struct {
	// DefaultPollRate replaces absent or non-positive configured poll
	// rates.
	DefaultPollRate time.Duration
	// DebounceWindow is the trailing-edge delay applied to bursts of
	// change notifications.
	DebounceWindow time.Duration
	// Clock drives the debounce timer and the sensors' poll loops.
	Clock clockz.Clock
	// Powered gates sensor reads by power policy; nil means always on.
	Powered sensor.PowerFunc
}

// Engine reconciles discovered hardware channels against configuration
// records, maintaining the registry of live sensors. Reconciliation
// passes are serialized: they all run on the goroutine inside Run (or on
// the caller's goroutine in tests), which is the registry's single
// writer.
type Engine struct {
	scanner  *hwmon.Scanner
	source   configdb.Source
	pub      sensor.Publisher
	registry *Registry
	logger   *logrus.Logger
	opts     Options
}

// New builds an engine. The registry starts empty.
func New(scanner *hwmon.Scanner, source configdb.Source, pub sensor.Publisher, logger *logrus.Logger, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}
	if opts.Powered == nil {
		opts.Powered = sensor.AlwaysPowered
	}
	return &Engine{
		scanner:  scanner,
		source:   source,
		pub:      pub,
		registry: NewRegistry(),
		logger:   logger,
		opts:     opts,
	}
}

// Registry exposes the live sensor table for reads.
func (e *Engine) Registry() *Registry { return e.registry }

// Reconcile runs one pass: enumerate channels, identify devices, match
// configuration, and create or replace sensors. With full set, every
// matched channel is rebuilt; otherwise only registered sensors whose
// name suffix-matches a member of changed are touched, consuming that
// member; a touched sensor whose record no longer matches is removed and
// closed. Per-item failures are logged and skipped, never fatal; the
// returned error covers only a failure to obtain the configuration
// snapshot.
func (e *Engine) Reconcile(ctx context.Context, full bool, changed *ChangedSet) error {
	snapshot, err := e.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching configuration snapshot: %w", err)
	}

	channels, err := e.scanner.Scan()
	if err != nil {
		e.logger.WithError(err).Warn("channel scan failed, skipping pass")
		return nil
	}
	if len(channels) == 0 {
		e.logger.Info("no sensor channels discovered")
		return nil
	}

	// Registered sensors named by a change notification are retired up
	// front: the channel loop rebuilds the ones that still match a
	// record, and anything left retired at the end of the pass lost its
	// configuration and is removed.
	retired := make(map[string]struct{})
	if !full && changed != nil {
		for _, name := range e.registry.Names() {
			if id, hit := changed.ConsumeSuffixOf(name); hit {
				e.logger.WithFields(logrus.Fields{"sensor": name, "changed": id}).Debug("configuration change affects registered sensor")
				retired[name] = struct{}{}
			}
		}
	}

	for _, ch := range channels {
		log := e.logger.WithField("channel", ch.Path)

		key, err := hwmon.Identify(ch.Path)
		if err != nil {
			log.WithError(err).Warn("skipping channel, cannot identify device")
			continue
		}
		log = log.WithField("device", key.String())

		m, ok := match(snapshot, key, ch.Modality, e.logger)
		if !ok {
			log.Warn("no configuration match for device")
			continue
		}
		name, err := m.Fields.Name()
		if err != nil {
			log.WithError(err).WithField("record", m.Identifier).Warn("skipping record without usable name")
			continue
		}

		// On incremental passes an already-registered sensor is rebuilt
		// only if it was retired by a change notification.
		if !full {
			if _, ok := e.registry.Get(name); ok {
				if _, hit := retired[name]; !hit {
					continue
				}
				delete(retired, name)
				log.WithField("sensor", name).Debug("rebuilding sensor after configuration change")
			}
		}

		cfg := sensor.Config{
			ChannelPath:  ch.Path,
			Schema:       m.Schema,
			Name:         name,
			Thresholds:   configdb.ParseThresholds(m.Record, e.logger),
			PollRate:     m.Fields.PollRate(e.opts.DefaultPollRate),
			Identifier:   m.Identifier,
			Power:        m.Fields.PowerPolicy(),
			Modality:     ch.Modality,
			PermitLabels: m.Fields.PermitLabels(),
		}

		snsr := sensor.New(cfg, e.pub, e.opts.Clock, e.opts.Powered, e.logger)
		e.registry.Install(name, snsr)
		snsr.BeginPolling(ctx)
	}

	for name := range retired {
		if old, ok := e.registry.Take(name); ok {
			old.Close()
		}
		e.logger.WithField("sensor", name).Info("configuration removed, sensor deleted")
	}
	return nil
}

// Run performs the initial full reconciliation and then services the
// configuration change feed through the debouncer until ctx is done. All
// passes run on one goroutine, which keeps registry mutation
// single-writer and passes strictly sequential.
func (e *Engine) Run(ctx context.Context) error {
	notifications, err := e.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to configuration changes: %w", err)
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		if err := e.Reconcile(ctx, true, nil); err != nil {
			e.logger.WithError(err).Warn("initial reconciliation failed")
		}
		e.logger.WithField("sensors", e.registry.Len()).Info("initial reconciliation complete")

		deb := NewDebouncer(e.opts.DebounceWindow, e.opts.Clock, e.logger, func(ctx context.Context, changed *ChangedSet) {
			if err := e.Reconcile(ctx, false, changed); err != nil {
				e.logger.WithError(err).Warn("incremental reconciliation failed")
			}
		})
		return deb.Run(ctx, notifications)
	})

	err = grp.Wait()
	e.registry.CloseAll()
	return err
}
