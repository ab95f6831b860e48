package lemmy

import (
	"context"
	"fmt"
	"time"

	"lemmy_stats/models"
	"lemmy_stats/pkg/storage"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Counter выполняет агрегирующий запрос и возвращает одно число.
type Counter interface {
	Count(ctx context.Context, statement string) (int64, error)
}

// MetricError сообщает, какая метрика не была собрана.
type MetricError struct {
	Metric string
	Err    error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("метрика %s: %v", e.Metric, e.Err)
}

func (e *MetricError) Unwrap() error { return e.Err }

// Collector собирает снимок статистики по списку Metrics.
type Collector struct {
	Logger       *zap.Logger
	QueryTimeout time.Duration    // 0 — без ограничения на отдельный запрос
	Now          func() time.Time // для тестов
	Metrics      []Metric         // nil — используется lemmy.Metrics
}

func NewCollector(logger *zap.Logger, queryTimeout time.Duration) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Logger: logger, QueryTimeout: queryTimeout, Now: time.Now}
}

// Collect последовательно выполняет все запросы через одно соединение.
// Снимок возвращается всегда. Ошибка содержит неудавшиеся метрики (*MetricError)
// и не является фатальной: их поля остаются нулевыми.
func (c *Collector) Collect(ctx context.Context, counter Counter) (*models.Stats, error) {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := c.Metrics
	if metrics == nil {
		metrics = Metrics
	}

	stats := models.NewStats(now())

	var errs error
	for _, m := range metrics {
		value, err := c.count(ctx, counter, m.Query)
		if err != nil {
			logger.Warn("не удалось собрать метрику",
				zap.String("metric", m.Name),
				zap.String("statement", m.Query),
				zap.String("sqlstate", storage.SQLState(err)),
				zap.Error(err))
			errs = multierr.Append(errs, &MetricError{Metric: m.Name, Err: err})
			continue
		}
		m.Set(stats, value)
	}

	return stats, errs
}

func (c *Collector) count(ctx context.Context, counter Counter, statement string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.QueryTimeout)
		defer cancel()
	}
	value, err := counter.Count(ctx, statement)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("отрицательное значение счётчика: %d", value)
	}
	return value, nil
}

// Failed возвращает имена метрик, перечисленных в ошибке Collect.
func Failed(err error) []string {
	var names []string
	for _, e := range multierr.Errors(err) {
		if me, ok := e.(*MetricError); ok {
			names = append(names, me.Metric)
		}
	}
	return names
}
