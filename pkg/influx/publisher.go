package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lemmy_stats/models"

	client "github.com/influxdata/influxdb1-client/v2"
)

// DefaultMeasurement — имя измерения, под которым пишется снимок.
const DefaultMeasurement = "stats"

// ErrPublishFailed возвращается, если запись в InfluxDB не удалась.
var ErrPublishFailed = errors.New("не удалось записать статистику в InfluxDB")

// Config описывает подключение к InfluxDB 1.x.
type Config struct {
	Addr        string // http://host:port
	Database    string
	Measurement string
	Username    string
	Password    string
	Timeout     time.Duration
}

// Publisher пишет снимок одной точкой за один запрос.
type Publisher struct {
	client      client.Client
	database    string
	measurement string
}

func NewPublisher(cfg Config) (*Publisher, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать клиент InfluxDB: %w", err)
	}
	return NewPublisherWithClient(c, cfg.Database, cfg.Measurement), nil
}

// NewPublisherWithClient использует уже созданный клиент.
func NewPublisherWithClient(c client.Client, database, measurement string) *Publisher {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &Publisher{client: c, database: database, measurement: measurement}
}

// NewPoint превращает снимок в точку: все счётчики — поля, CapturedAt — время точки.
func NewPoint(measurement string, stats *models.Stats) (*client.Point, error) {
	return client.NewPoint(measurement, nil, stats.Fields(), stats.CapturedAt)
}

// Publish выполняет ровно одну запись. Повторов нет.
func (p *Publisher) Publish(ctx context.Context, stats *models.Stats) error {
	if stats == nil {
		return fmt.Errorf("%w: пустой снимок", ErrPublishFailed)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  p.database,
		Precision: "ns",
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	pt, err := NewPoint(p.measurement, stats)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	bp.AddPoint(pt)

	if err := p.client.Write(bp); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close закрывает HTTP-клиент.
func (p *Publisher) Close() error {
	return p.client.Close()
}
