package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lemmy_stats/internal/monitoring"
	"lemmy_stats/models"
	"lemmy_stats/pkg/influx"
	"lemmy_stats/pkg/lemmy"
	"lemmy_stats/pkg/storage"

	"go.uber.org/zap"
)

// ErrRunInProgress возвращается, если предыдущий прогон ещё не завершён.
var ErrRunInProgress = errors.New("сбор статистики уже выполняется")

// State — стадия прогона.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateCollecting
	StatePublishing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateCollecting:
		return "collecting"
	case StatePublishing:
		return "publishing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source — открытое соединение, через которое выполняются запросы.
type Source interface {
	lemmy.Counter
	Close() error
}

// Connector открывает соединение с базой на время одного прогона.
type Connector func(ctx context.Context) (Source, error)

// Publisher записывает готовый снимок.
type Publisher interface {
	Publish(ctx context.Context, stats *models.Stats) error
}

// Result описывает итог прогона.
type Result struct {
	Stats     *models.Stats `json:"stats,omitempty"`
	Failed    []string      `json:"failed_metrics,omitempty"`
	Published bool          `json:"published"`
	State     string        `json:"state"`
	Duration  time.Duration `json:"duration_ns"`
}

// Runner связывает подключение, сбор и запись в один прогон.
type Runner struct {
	Connect    Connector
	Collector  *lemmy.Collector
	Publisher  Publisher
	Logger     *zap.Logger
	Metrics    *monitoring.Metrics // может быть nil
	RunTimeout time.Duration       // ограничивает подключение и сбор, но не запись

	// PublishTimeout ограничивает запись. Запись идёт в отдельном контексте,
	// чтобы частичный снимок попал в InfluxDB даже после истечения RunTimeout.
	PublishTimeout time.Duration

	mu sync.Mutex
}

// PostgresConnector открывает соединение с PostgreSQL по DSN.
func PostgresConnector(dsn string) Connector {
	return func(ctx context.Context) (Source, error) {
		db, err := storage.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// Run выполняет один прогон: Connecting → Collecting → Publishing → Done.
// Ошибка подключения фатальна и ничего не публикует. Ошибки отдельных метрик
// попадают в Result.Failed. Ошибка записи возвращается вместе с собранным снимком.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runCtx := ctx
	if r.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.RunTimeout)
		defer cancel()
	}

	started := time.Now()
	res := &Result{State: StateIdle.String()}
	finish := func(state State, outcome string) {
		res.State = state.String()
		res.Duration = time.Since(started)
		if r.Metrics != nil {
			r.Metrics.Runs.WithLabelValues(outcome).Inc()
			r.Metrics.RunDuration.Observe(res.Duration.Seconds())
		}
	}

	res.State = StateConnecting.String()
	logger.Info("подключение к базе данных")
	src, err := r.Connect(runCtx)
	if err != nil {
		finish(StateFailed, monitoring.ResultConnectionFailed)
		logger.Error("не удалось подключиться к базе данных", zap.Error(err))
		if !errors.Is(err, storage.ErrConnectionFailed) {
			err = fmt.Errorf("%w: %w", storage.ErrConnectionFailed, err)
		}
		return res, err
	}

	res.State = StateCollecting.String()
	collector := r.Collector
	if collector == nil {
		collector = lemmy.NewCollector(logger, 0)
	}
	stats, collectErr := collector.Collect(runCtx, src)
	if err := src.Close(); err != nil {
		logger.Warn("не удалось закрыть соединение с базой", zap.Error(err))
	}
	res.Stats = stats
	res.Failed = lemmy.Failed(collectErr)
	r.observeSnapshot(stats, res.Failed)
	logger.Info("статистика собрана",
		zap.Time("captured_at", stats.CapturedAt),
		zap.Int("failed_metrics", len(res.Failed)),
		zap.Any("stats", stats))

	res.State = StatePublishing.String()
	pubCtx := context.WithoutCancel(ctx)
	if r.PublishTimeout > 0 {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(pubCtx, r.PublishTimeout)
		defer cancel()
	}
	if err := r.Publisher.Publish(pubCtx, stats); err != nil {
		finish(StateFailed, monitoring.ResultPublishFailed)
		logger.Error("не удалось записать статистику", zap.Error(err))
		if !errors.Is(err, influx.ErrPublishFailed) {
			err = fmt.Errorf("%w: %w", influx.ErrPublishFailed, err)
		}
		return res, err
	}
	res.Published = true

	outcome := monitoring.ResultSuccess
	if len(res.Failed) > 0 {
		outcome = monitoring.ResultPartial
	}
	finish(StateDone, outcome)
	if r.Metrics != nil {
		r.Metrics.LastSuccess.Set(float64(time.Now().Unix()))
	}
	logger.Info("статистика записана в InfluxDB", zap.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) observeSnapshot(stats *models.Stats, failed []string) {
	if r.Metrics == nil {
		return
	}
	for _, name := range failed {
		r.Metrics.QueryFailures.WithLabelValues(name).Inc()
	}
	for _, f := range models.StatsFields {
		r.Metrics.SnapshotValues.WithLabelValues(f.Name).Set(float64(f.Value(stats)))
	}
}
