package bwatchdog

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Signal is the value delivered on the channel returned by
// [*Watchdog.Monitor].
// The subsystem must close Alive promptly
// to keep the watchdog from terminating the system.
type Signal struct {
	// Every signal carries a non-nil, unclosed Alive channel.
	Alive chan<- struct{}
}

// MonitorConfig describes one subsystem's liveness contract.
type MonitorConfig struct {
	// Subsystem name, used in termination errors and logs.
	Name string

	// The subsystem is polled every Interval
	// plus a uniformly distributed jitter in [-Jitter, +Jitter).
	Interval, Jitter time.Duration

	// The subsystem has ResponseTimeout to accept the signal and then
	// close its Alive channel; missing either terminates the whole system.
	ResponseTimeout time.Duration
}

func (c MonitorConfig) validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("MonitorConfig.Name is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("MonitorConfig.Interval must be positive"))
	}
	switch {
	case c.Jitter <= 0:
		errs = append(errs, errors.New("MonitorConfig.Jitter must be positive"))
	case c.Jitter > c.Interval:
		errs = append(errs, errors.New("MonitorConfig.Jitter must not exceed MonitorConfig.Interval"))
	}
	if c.ResponseTimeout <= 0 {
		errs = append(errs, errors.New("MonitorConfig.ResponseTimeout must be positive"))
	}

	return errors.Join(errs...)
}

// monitor polls a single subsystem for liveness.
// Only its own run goroutine touches its fields.
type monitor struct {
	log  *slog.Logger
	cfg  MonitorConfig
	sigs chan Signal

	// Cancels the watchdog context when the subsystem misses its window.
	terminate context.CancelCauseFunc

	// Dedicated PCG source so concurrent monitors do not share a lock.
	rng *rand.Rand
}

func newMonitor(log *slog.Logger, cfg MonitorConfig, terminate context.CancelCauseFunc) *monitor {
	return &monitor{
		log:       log,
		cfg:       cfg,
		sigs:      make(chan Signal), // Unbuffered because polling is synchronous.
		terminate: terminate,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (m *monitor) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		timer := time.NewTimer(m.nextDelay())

		select {
		case <-ctx.Done():
			timer.Stop()
			m.log.Debug("Monitor stopping due to context cancellation", "cause", context.Cause(ctx))
			return
		case <-timer.C:
			if !m.poll(ctx) {
				return
			}
		}
	}
}

// nextDelay applies jitter to the configured poll interval.
func (m *monitor) nextDelay() time.Duration {
	j := time.Duration(m.rng.Int64N(int64(2*m.cfg.Jitter))) - m.cfg.Jitter
	return m.cfg.Interval + j
}

// poll sends one signal and awaits the Alive response,
// reporting whether the monitor should keep running.
// Delivery of the signal counts against the same deadline as the response.
func (m *monitor) poll(ctx context.Context) bool {
	alive := make(chan struct{})
	deadline := time.NewTimer(m.cfg.ResponseTimeout)
	defer deadline.Stop()

	select {
	case m.sigs <- Signal{Alive: alive}:
	case <-deadline.C:
		m.terminate(FailureToRespondError{SubsystemName: m.cfg.Name})
		return false
	case <-ctx.Done():
		return false
	}

	select {
	case <-alive:
		return true
	case <-deadline.C:
		// The response may have raced the deadline;
		// the runtime picks among ready cases at random.
		select {
		case <-alive:
			return true
		default:
		}
		m.terminate(FailureToRespondError{SubsystemName: m.cfg.Name})
		return false
	case <-ctx.Done():
		return false
	}
}
