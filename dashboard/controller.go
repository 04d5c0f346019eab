package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dickeyy/bundle-dashboard/metrics"
	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultSchedule reloads the dashboard every five minutes.
const DefaultSchedule = "@every 5m"

// Loader fetches the full measurement dataset.
type Loader interface {
	Load(ctx context.Context) ([]types.MeasurementRecord, error)
}

type State int32

const (
	StateLoading State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "loading"
	}
}

type Option func(*Controller)

// WithCommitOrg sets the GitHub organisation used for commit links.
func WithCommitOrg(org string) Option {
	return func(c *Controller) { c.org = org }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSchedule sets the cron spec of the reload task.
func WithSchedule(spec string) Option {
	return func(c *Controller) { c.schedule = spec }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller loads the dataset once per cycle and writes the table and stats
// to its surface. Each reload cycle starts from scratch, as if the page had
// been opened again.
type Controller struct {
	loader   Loader
	surface  Surface
	org      string
	loc      *time.Location
	now      func() time.Time
	schedule string
	metrics  *metrics.Metrics

	// cycle serialises load cycles.
	cycle sync.Mutex
	state atomic.Int32

	dataMu sync.RWMutex
	data   []types.MeasurementRecord

	lifeMu sync.Mutex
	life   context.Context
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(loader Loader, surface Surface, opts ...Option) *Controller {
	c := &Controller{
		loader:   loader,
		surface:  surface,
		org:      DefaultCommitOrg,
		loc:      time.UTC,
		now:      time.Now,
		schedule: DefaultSchedule,
		data:     []types.MeasurementRecord{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start begins the initial load in the background and schedules the reload
// task. Stop must be called to release both.
func (c *Controller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	cl := cronLogger{}
	sched := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := sched.AddFunc(c.schedule, func() { c.Reload(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid reload schedule %q: %w", c.schedule, err)
	}

	c.lifeMu.Lock()
	c.life = ctx
	c.lifeMu.Unlock()
	c.cancel = cancel
	c.cron = sched

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.LoadData(ctx)
	}()

	sched.Start()
	log.Info().Str("schedule", c.schedule).Msg("dashboard reload scheduled")
	return nil
}

// Stop cancels the reload task and any load in flight, then waits for them.
func (c *Controller) Stop() {
	if c.cron == nil {
		return
	}
	c.cancel()
	<-c.cron.Stop().Done()
	c.wg.Wait()
	log.Info().Msg("dashboard reload stopped")
}

// Reload discards the current dataset and output and loads again. Once the
// controller is started, the load is also cancelled by Stop.
func (c *Controller) Reload(ctx context.Context) error {
	ctx, cancel := c.bind(ctx)
	defer cancel()

	c.cycle.Lock()
	defer c.cycle.Unlock()

	c.surface.Reset()
	c.setData([]types.MeasurementRecord{})
	c.state.Store(int32(StateLoading))
	return c.loadData(ctx)
}

// LoadData fetches the dataset and renders it. A failure replaces the table
// with LoadErrorMessage and leaves the stat fields alone; it is not retried.
func (c *Controller) LoadData(ctx context.Context) error {
	ctx, cancel := c.bind(ctx)
	defer cancel()

	c.cycle.Lock()
	defer c.cycle.Unlock()
	return c.loadData(ctx)
}

func (c *Controller) loadData(ctx context.Context) error {
	start := time.Now()
	records, err := c.loader.Load(ctx)
	took := time.Since(start)
	if err != nil {
		kind := ErrorKind(err)
		log.Error().Err(err).Str("kind", kind).Dur("took", took).Msg("failed to load bundle data")
		c.metrics.LoadFailed(took, kind)
		c.ShowError(LoadErrorMessage)
		c.state.Store(int32(StateFailed))
		return err
	}
	if records == nil {
		records = []types.MeasurementRecord{}
	}

	c.setData(records)
	c.RenderTable()
	c.UpdateStats()
	c.state.Store(int32(StateLoaded))
	c.metrics.LoadSucceeded(took, len(records))
	log.Info().Int("records", len(records)).Dur("took", took).Msg("loaded bundle data")
	return nil
}

// RenderTable writes the current dataset to the surface, newest first.
func (c *Controller) RenderTable() {
	c.surface.ReplaceRows(BuildRows(c.dataset(), c.org, c.loc))
}

// UpdateStats writes the summary fields. It does nothing for an empty dataset.
func (c *Controller) UpdateStats() {
	stats, ok := BuildStats(c.dataset(), c.now(), c.loc)
	if !ok {
		return
	}
	c.surface.SetField(FieldTotalEntries, strconv.Itoa(stats.TotalEntries))
	c.surface.SetField(FieldLatestAndroid, stats.LatestAndroid)
	c.surface.SetField(FieldLatestIOS, stats.LatestIOS)
	c.surface.SetField(FieldLastUpdated, stats.LastUpdated)
}

// ShowError replaces the table with a single row holding message.
func (c *Controller) ShowError(message string) {
	c.surface.ReplaceRows([]Row{MessageRow(message)})
}

// bind derives a context that is also cancelled when the controller's
// lifecycle ends, so callers detached from it cannot outlive Stop.
func (c *Controller) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	c.lifeMu.Lock()
	life := c.life
	c.lifeMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	if life == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) dataset() []types.MeasurementRecord {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	return c.data
}

func (c *Controller) setData(records []types.MeasurementRecord) {
	c.dataMu.Lock()
	c.data = records
	c.dataMu.Unlock()
}

// ErrorKind classifies a load error for logs and metrics.
func ErrorKind(err error) string {
	var (
		fetchErr   *types.FetchError
		networkErr *types.NetworkError
		parseErr   *types.ParseError
	)
	switch {
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &networkErr):
		return "network"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "other"
	}
}

// cronLogger routes scheduler output to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
