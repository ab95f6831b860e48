package main

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

var requiredEnv = []string{
	"PG_DB_HOST", "PG_DB_USER", "PG_DB_PASS", "PG_DB_NAME",
	"INFLUX_HOST", "INFLUX_NAME", "INFLUX_PORT",
}

// influxStub считает запросы записи.
func influxStub(t *testing.T) (host, port string, writes *int64) {
	t.Helper()
	writes = new(int64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(writes, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("не удалось разобрать адрес тестового сервера: %v", err)
	}
	return host, port, writes
}

// closedPort возвращает порт, на котором никто не слушает.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("не удалось занять порт: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return strconv.Itoa(port)
}

func setValidEnv(t *testing.T) *int64 {
	t.Helper()
	host, port, writes := influxStub(t)
	t.Setenv("PG_DB_HOST", "127.0.0.1")
	t.Setenv("PG_DB_PORT", closedPort(t))
	t.Setenv("PG_DB_USER", "lemmy")
	t.Setenv("PG_DB_PASS", "secret")
	t.Setenv("PG_DB_NAME", "lemmy")
	t.Setenv("INFLUX_HOST", host)
	t.Setenv("INFLUX_PORT", port)
	t.Setenv("INFLUX_NAME", "lemmy_stats")
	t.Setenv("RUN_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "")
	return writes
}

func TestRunMissingEnv(t *testing.T) {
	for _, key := range requiredEnv {
		t.Setenv(key, "")
	}
	if code := run(nil); code != exitFailure {
		t.Fatalf("без обязательных настроек ожидался код %d, получен %d", exitFailure, code)
	}
}

func TestRunPostgresUnreachable(t *testing.T) {
	writes := setValidEnv(t)

	if code := run(nil); code != exitFailure {
		t.Fatalf("без подключения к базе ожидался код %d, получен %d", exitFailure, code)
	}
	if n := atomic.LoadInt64(writes); n != 0 {
		t.Fatalf("без подключения к базе запись в InfluxDB не должна выполняться, запросов: %d", n)
	}
}

func TestRunInvalidLogLevel(t *testing.T) {
	writes := setValidEnv(t)

	if code := run([]string{"--log-level=loud"}); code != exitFailure {
		t.Fatalf("при некорректном уровне логов ожидался код %d, получен %d", exitFailure, code)
	}
	if n := atomic.LoadInt64(writes); n != 0 {
		t.Fatalf("запись не должна выполняться, запросов: %d", n)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	if code := run([]string{"--no-such-flag"}); code != exitFailure {
		t.Fatalf("для неизвестного флага ожидался код %d, получен %d", exitFailure, code)
	}
}
