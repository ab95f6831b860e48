package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lemmy_stats/internal/config"
	"lemmy_stats/internal/harvest"
	"lemmy_stats/internal/logger"
	"lemmy_stats/internal/monitoring"
	"lemmy_stats/internal/statistics"
	"lemmy_stats/pkg/influx"
	"lemmy_stats/pkg/lemmy"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Коды завершения процесса.
const (
	exitOK      = 0
	exitFailure = 1 // нет настроек, нет подключения или не удалась запись
	exitPartial = 2 // часть метрик не собрана, только с --strict
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("lemmy_stats", pflag.ContinueOnError)
	configFile := fs.String("config", "", "путь к YAML-файлу настроек")
	serve := fs.Bool("serve", false, "запустить HTTP-сервер: каждый POST /stats/collect выполняет один прогон")
	strict := fs.Bool("strict", false, "завершаться с кодом 2, если часть метрик не собрана")
	fs.String("listen", "", "адрес HTTP-сервера (по умолчанию LISTEN_ADDR или :8080)")
	fs.String("log-level", "", "уровень логирования (по умолчанию LOG_LEVEL или info)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	// До чтения настроек уровень и формат логов неизвестны.
	boot, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "не удалось создать логгер: %v\n", err)
		return exitFailure
	}
	defer func() { _ = boot.Sync() }()

	v, err := config.New(*configFile)
	if err != nil {
		boot.Error("не удалось загрузить настройки", zap.Error(err))
		return exitFailure
	}
	_ = v.BindPFlag("listen_addr", fs.Lookup("listen"))
	_ = v.BindPFlag("log_level", fs.Lookup("log-level"))

	cfg, err := config.Load(v)
	if err != nil {
		boot.Error("некорректные настройки", zap.Error(err))
		return exitFailure
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		boot.Error("не удалось создать логгер", zap.Error(err))
		return exitFailure
	}
	defer func() { _ = log.Sync() }()

	publisher, err := influx.NewPublisher(influx.Config{
		Addr:        cfg.InfluxAddr(),
		Database:    cfg.InfluxName,
		Measurement: cfg.InfluxMeasurement,
		Username:    cfg.InfluxUser,
		Password:    cfg.InfluxPass,
		Timeout:     cfg.InfluxTimeout,
	})
	if err != nil {
		log.Error("не удалось подготовить запись в InfluxDB", zap.Error(err))
		return exitFailure
	}
	defer publisher.Close()

	metrics := monitoring.New()
	runner := &harvest.Runner{
		Connect:        harvest.PostgresConnector(cfg.PostgresDSN()),
		Collector:      lemmy.NewCollector(log, cfg.QueryTimeout),
		Publisher:      publisher,
		Logger:         log,
		Metrics:        metrics,
		RunTimeout:     cfg.RunTimeout,
		PublishTimeout: cfg.InfluxTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		return serveHTTP(ctx, cfg.ListenAddr, runner, metrics, log)
	}

	res, err := runner.Run(ctx)
	if err != nil {
		return exitFailure
	}
	if *strict && len(res.Failed) > 0 {
		log.Warn("часть метрик не собрана", zap.Strings("failed_metrics", res.Failed))
		return exitPartial
	}
	return exitOK
}

func serveHTTP(ctx context.Context, addr string, runner *harvest.Runner, metrics *monitoring.Metrics, log *zap.Logger) int {
	gin.SetMode(gin.ReleaseMode)
	r := statistics.NewRouter(statistics.NewHandler(runner, log), metrics.Registry)

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info("запуск HTTP-сервера", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP-сервер завершился с ошибкой", zap.Error(err))
			return exitFailure
		}
		return exitOK
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("не удалось корректно остановить HTTP-сервер", zap.Error(err))
		return exitFailure
	}
	log.Info("HTTP-сервер остановлен")
	return exitOK
}
