package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigMissing — не задана обязательная переменная окружения.
	ErrConfigMissing = errors.New("не задана обязательная настройка")
	// ErrConfigInvalid — значение настройки не удалось разобрать.
	ErrConfigInvalid = errors.New("некорректная настройка")
)

// Обязательные ключи. Имя переменной окружения совпадает с ключом в верхнем регистре.
var requiredKeys = []string{
	"pg_db_host",
	"pg_db_user",
	"pg_db_pass",
	"pg_db_name",
	"influx_host",
	"influx_name",
	"influx_port",
}

var defaultValues = map[string]interface{}{
	"pg_db_port":         5432,
	"pg_db_sslmode":      "disable",
	"influx_user":        "",
	"influx_pass":        "",
	"influx_measurement": "stats",
	"influx_timeout":     "10s",
	"query_timeout":      "30s",
	"run_timeout":        "10m", // больше, чем 15 запросов по query_timeout
	"log_level":          "info",
	"log_format":         "json",
	"listen_addr":        ":8080",
}

// MissingError перечисляет все отсутствующие обязательные ключи.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%v: %s", ErrConfigMissing, strings.Join(e.Keys, ", "))
}

func (e *MissingError) Is(target error) bool { return target == ErrConfigMissing }

// Config — неизменяемые настройки одного запуска.
type Config struct {
	PGHost    string
	PGPort    int
	PGUser    string
	PGPass    string
	PGName    string
	PGSSLMode string

	InfluxHost        string
	InfluxPort        string
	InfluxName        string
	InfluxUser        string
	InfluxPass        string
	InfluxMeasurement string
	InfluxTimeout     time.Duration

	QueryTimeout time.Duration
	RunTimeout   time.Duration

	LogLevel   string
	LogFormat  string
	ListenAddr string
}

// New готовит экземпляр viper: значения по умолчанию, переменные окружения
// и, если найден, YAML-файл. Пустой configFile означает поиск config.yaml
// в стандартных каталогах; отсутствие файла не ошибка.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaultValues {
		v.SetDefault(key, value)
	}
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	for key := range defaultValues {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/lemmy-stats/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("не удалось прочитать файл настроек: %w", err)
		}
	}
	return v, nil
}

// Load проверяет обязательные ключи и собирает Config.
func Load(v *viper.Viper) (*Config, error) {
	var missing []string
	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			missing = append(missing, strings.ToUpper(key))
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}

	cfg := &Config{
		PGHost:    v.GetString("pg_db_host"),
		PGUser:    v.GetString("pg_db_user"),
		PGPass:    v.GetString("pg_db_pass"),
		PGName:    v.GetString("pg_db_name"),
		PGSSLMode: v.GetString("pg_db_sslmode"),

		InfluxHost:        v.GetString("influx_host"),
		InfluxPort:        v.GetString("influx_port"),
		InfluxName:        v.GetString("influx_name"),
		InfluxUser:        v.GetString("influx_user"),
		InfluxPass:        v.GetString("influx_pass"),
		InfluxMeasurement: v.GetString("influx_measurement"),

		LogLevel:   v.GetString("log_level"),
		LogFormat:  v.GetString("log_format"),
		ListenAddr: v.GetString("listen_addr"),
	}

	port, err := strconv.Atoi(v.GetString("pg_db_port"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: PG_DB_PORT=%q", ErrConfigInvalid, v.GetString("pg_db_port"))
	}
	cfg.PGPort = port

	if p, err := strconv.Atoi(cfg.InfluxPort); err != nil || p <= 0 || p > 65535 {
		return nil, fmt.Errorf("%w: INFLUX_PORT=%q", ErrConfigInvalid, cfg.InfluxPort)
	}

	for key, dst := range map[string]*time.Duration{
		"influx_timeout": &cfg.InfluxTimeout,
		"query_timeout":  &cfg.QueryTimeout,
		"run_timeout":    &cfg.RunTimeout,
	} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: %s=%q", ErrConfigInvalid, strings.ToUpper(key), v.GetString(key))
		}
		*dst = d
	}

	return cfg, nil
}

// PostgresDSN возвращает строку подключения в формате key=value для lib/pq.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSN(c.PGHost), c.PGPort, quoteDSN(c.PGUser), quoteDSN(c.PGPass),
		quoteDSN(c.PGName), quoteDSN(c.PGSSLMode))
}

// InfluxAddr возвращает адрес HTTP API InfluxDB.
func (c *Config) InfluxAddr() string {
	return "http://" + net.JoinHostPort(c.InfluxHost, c.InfluxPort)
}

// quoteDSN экранирует значение по правилам libpq: пустые значения и значения
// с пробелами заключаются в одинарные кавычки, ' и \ экранируются.
func quoteDSN(s string) string {
	if s != "" && !strings.ContainsAny(s, " '\\\t\n") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
