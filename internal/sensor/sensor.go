package sensor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"

	"github.com/tbrandt/iiobridge/internal/configdb"
	"github.com/tbrandt/iiobridge/internal/hwmon"
)

// PowerFunc reports whether a sensor bound to the given policy may read
// its hardware right now. AlwaysPowered is the default.
type PowerFunc func(configdb.PowerPolicy) bool

// AlwaysPowered treats every power domain as on.
func AlwaysPowered(configdb.PowerPolicy) bool { return true }

// Config carries everything a sensor instance is bound to at creation.
type Config struct {
	ChannelPath  string
	Schema       string
	Name         string
	Thresholds   []configdb.Threshold
	PollRate     time.Duration
	Identifier   string // configuration record identifier backing this sensor
	Power        configdb.PowerPolicy
	Modality     hwmon.Modality
	PermitLabels []string
}

// Sensor polls one hardware channel file at a fixed rate and publishes
// each reading. Instances are single-use: BeginPolling starts the loop,
// Close stops it, and a replacement is always a fresh instance.
type Sensor struct {
	cfg     Config
	pub     Publisher
	clock   clockz.Clock
	powered PowerFunc
	logger  *logrus.Entry

	mu      sync.RWMutex
	value   float64
	haveVal bool

	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New builds a sensor. The clock is injectable so tests can drive the
// poll loop deterministically.
func New(cfg Config, pub Publisher, clock clockz.Clock, powered PowerFunc, logger *logrus.Logger) *Sensor {
	if powered == nil {
		powered = AlwaysPowered
	}
	return &Sensor{
		cfg:     cfg,
		pub:     pub,
		clock:   clock,
		powered: powered,
		logger:  logger.WithField("sensor", cfg.Name),
		done:    make(chan struct{}),
	}
}

func (s *Sensor) Name() string { return s.cfg.Name }

func (s *Sensor) ChannelPath() string { return s.cfg.ChannelPath }

func (s *Sensor) Identifier() string { return s.cfg.Identifier }

func (s *Sensor) Modality() hwmon.Modality { return s.cfg.Modality }

// Value returns the last successful reading, if any.
func (s *Sensor) Value() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.haveVal
}

// BeginPolling announces the sensor and starts the read loop. Calling it
// more than once is a no-op.
func (s *Sensor) BeginPolling(ctx context.Context) {
	s.startOnce.Do(func() {
		if err := s.pub.Announce(Metadata{Name: s.cfg.Name, Modality: s.cfg.Modality, Schema: s.cfg.Schema}); err != nil {
			s.logger.WithError(err).Warn("sensor announce failed")
		}

		ctx, s.cancel = context.WithCancel(ctx)
		s.started = true

		// The timer must exist before BeginPolling returns so a fake
		// clock advanced right after startup still has a waiter.
		timer := s.clock.NewTimer(s.cfg.PollRate)
		go s.poll(ctx, timer)
	})
}

// Close stops the poll loop and waits for it to exit. Safe to call on a
// sensor that never started and safe to call twice.
func (s *Sensor) Close() {
	s.closeOnce.Do(func() {
		if !s.started {
			return
		}
		s.cancel()
		<-s.done
	})
}

func (s *Sensor) poll(ctx context.Context, timer clockz.Timer) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}

		if s.powered(s.cfg.Power) {
			s.readAndPublish()
		}
		// Reset on a fired timer does not re-register it with a fake
		// clock, so each tick gets a fresh timer.
		timer = s.clock.NewTimer(s.cfg.PollRate)
	}
}

func (s *Sensor) readAndPublish() {
	value, err := readChannel(s.cfg.ChannelPath)
	if err != nil {
		s.logger.WithError(err).Debug("channel read failed")
		return
	}

	s.mu.Lock()
	s.value = value
	s.haveVal = true
	s.mu.Unlock()

	reading := Reading{Sensor: s.cfg.Name, Value: value, Alarms: s.alarms(value)}
	if err := s.pub.Publish(reading); err != nil {
		s.logger.WithError(err).Warn("publish failed")
	}
}

// alarms returns the severities of every threshold the value exceeds.
func (s *Sensor) alarms(value float64) []string {
	var alarms []string
	for _, t := range s.cfg.Thresholds {
		if t.Exceeded(value) {
			alarms = append(alarms, t.Severity.String())
		}
	}
	return alarms
}

// readChannel parses the channel value file. IIO value files hold a
// single numeric token.
func readChannel(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing channel value from %s: %w", path, err)
	}
	return value, nil
}
