// Package jobs runs the periodic maintenance work of the server: mailbox
// connectivity probes, in-memory cache sweeps and idempotency record purges.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/tbourn/go-portfolio-backend/internal/repo"
)

// Job names, used as metric labels and log fields.
const (
	JobMailboxProbe     = "mailbox_probe"
	JobCacheSweep       = "cache_sweep"
	JobIdempotencyPurge = "idempotency_purge"
)

// Default per-run deadline.
const defaultRunTimeout = 30 * time.Second

// MailboxProber is the subset of the mailbox client the probe job needs.
type MailboxProber interface {
	IsConfigured() bool
	TestConnection(ctx context.Context) bool
}

// Sweeper drops expired entries and reports how many were removed.
type Sweeper func(now time.Time) int

// Specs holds cron expressions per job. An empty spec disables the job.
type Specs struct {
	MailboxProbe     string
	CacheSweep       string
	IdempotencyPurge string
}

// Options wires the manager to the rest of the server.
type Options struct {
	Specs      Specs
	DB         *gorm.DB
	Mailbox    MailboxProber
	Sweepers   map[string]Sweeper
	RunTimeout time.Duration
	Now        func() time.Time
}

// Manager owns a cron scheduler and the registered job entries.
type Manager struct {
	opts   Options
	cron   *cronv3.Cron
	mu     sync.Mutex
	jobIDs map[string]cronv3.EntryID
}

// New builds a manager. Jobs are registered by Start.
func New(opts Options) *Manager {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	logger := cronLogger{l: log.Logger.With().Str("component", "jobs").Logger()}
	return &Manager{
		opts: opts,
		cron: cronv3.New(cronv3.WithChain(
			cronv3.SkipIfStillRunning(logger),
			cronv3.Recover(logger),
		)),
		jobIDs: make(map[string]cronv3.EntryID),
	}
}

// Start registers every job that has a schedule and starts the scheduler.
// A bad cron expression aborts before anything runs.
func (m *Manager) Start() error {
	type entry struct {
		name string
		spec string
		run  func(context.Context) error
	}
	entries := []entry{
		{JobMailboxProbe, m.opts.Specs.MailboxProbe, m.ProbeMailbox},
		{JobCacheSweep, m.opts.Specs.CacheSweep, m.SweepCaches},
		{JobIdempotencyPurge, m.opts.Specs.IdempotencyPurge, m.PurgeIdempotency},
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if e.spec == "" {
			log.Info().Str("job", e.name).Msg("job disabled")
			continue
		}
		name, run := e.name, e.run
		id, err := m.cron.AddFunc(e.spec, func() { m.execute(name, run) })
		if err != nil {
			for _, added := range m.jobIDs {
				m.cron.Remove(added)
			}
			m.jobIDs = make(map[string]cronv3.EntryID)
			return err
		}
		m.jobIDs[name] = id
		log.Info().Str("job", name).Str("schedule", e.spec).Msg("job scheduled")
	}
	m.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs, or for ctx.
func (m *Manager) Stop(ctx context.Context) error {
	select {
	case <-m.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scheduled lists the names of registered jobs.
func (m *Manager) Scheduled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.jobIDs))
	for name := range m.jobIDs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) execute(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.RunTimeout)
	defer cancel()
	ctx, span := otel.Tracer("jobs").Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := run(ctx)
	runDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		runsTotal.WithLabelValues(name, "error").Inc()
		log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	runsTotal.WithLabelValues(name, "ok").Inc()
}

// ProbeMailbox checks mailbox connectivity so the status gauge stays fresh
// between admin requests. Unconfigured mailboxes are skipped.
func (m *Manager) ProbeMailbox(ctx context.Context) error {
	if m.opts.Mailbox == nil || !m.opts.Mailbox.IsConfigured() {
		return nil
	}
	if !m.opts.Mailbox.TestConnection(ctx) {
		log.Warn().Str("job", JobMailboxProbe).Msg("mailbox unreachable")
	}
	return nil
}

// SweepCaches runs every sweeper and counts dropped entries per cache.
func (m *Manager) SweepCaches(context.Context) error {
	now := m.opts.Now()
	total := 0
	for name, sweep := range m.opts.Sweepers {
		if sweep == nil {
			continue
		}
		n := sweep(now)
		sweptTotal.WithLabelValues(name).Add(float64(n))
		total += n
	}
	if total > 0 {
		log.Debug().Int("removed", total).Msg("caches swept")
	}
	return nil
}

// PurgeIdempotency deletes expired Idempotency-Key records.
func (m *Manager) PurgeIdempotency(ctx context.Context) error {
	if m.opts.DB == nil {
		return errors.New("jobs: no database")
	}
	n, err := repo.PurgeIdempotency(ctx, m.opts.DB, m.opts.Now())
	if err != nil {
		return err
	}
	sweptTotal.WithLabelValues("idempotency").Add(float64(n))
	if n > 0 {
		log.Info().Int64("removed", n).Msg("idempotency records purged")
	}
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
