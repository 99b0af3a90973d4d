package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/claims"
	postgres "github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/storage/postgres"
)

// Config aggregates runtime configuration grouped by concern.
type Config struct {
	ServiceName string
	HTTP        HTTPConfig
	Upstream    UpstreamConfig
	Claims      ClaimsConfig
	Restate     RestateConfig
	Kafka       KafkaConfig
	Database    DatabaseConfig
	Email       EmailConfig
	Telemetry   TelemetryConfig
}

type HTTPConfig struct {
	Addr string
	// TypedErrors maps validation failures to 400 and unknown claims to 404
	// instead of answering 500 for every core failure.
	TypedErrors bool
}

type UpstreamConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

type ClaimsConfig struct {
	StatusIDParam         string
	FollowUpDelay         time.Duration
	StrictReserveFollowUp bool
	Reserve               claims.ReserveProfile
}

// Options converts the claims group into service options.
func (c ClaimsConfig) Options() claims.Options {
	return claims.Options{
		StatusIDParam:         c.StatusIDParam,
		FollowUpDelay:         c.FollowUpDelay,
		Reserve:               c.Reserve,
		StrictReserveFollowUp: c.StrictReserveFollowUp,
	}
}

type RestateConfig struct {
	Enabled    bool
	ListenAddr string
}

type KafkaConfig struct {
	Brokers     []string
	ClaimsTopic string
	AlertsGroup string
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type DatabaseConfig struct {
	Enabled bool
	postgres.DatabaseConfig
}

type EmailConfig struct {
	AlertRecipient string
}

type TelemetryConfig struct {
	TracesEndpoint string
}

// Load reads configuration from environment variables. Upstream credentials
// and the reserve profile have no defaults and must be provided.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: getEnv("SERVICE_NAME", "siniestros-gateway"),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
		},
		Upstream: UpstreamConfig{
			BaseURL:      strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
			ClientID:     getEnv("CLIENT_ID", ""),
			ClientSecret: getEnv("CLIENT_SECRET", ""),
		},
		Claims: ClaimsConfig{
			StatusIDParam: getEnv("CLAIMS_STATUS_ID_PARAM", "id"),
			Reserve: claims.ReserveProfile{
				EntidadColocadora: json.Number(getEnv("CLAIMS_RESERVE_ENTIDAD_COLOCADORA", "")),
				SistemaOrigen:     json.Number(getEnv("CLAIMS_RESERVE_SISTEMA_ORIGEN", "")),
				IDCanal:           json.Number(getEnv("CLAIMS_RESERVE_ID_CANAL", "")),
				UsuarioCreacion:   getEnv("CLAIMS_RESERVE_USUARIO_CREACION", ""),
			},
		},
		Restate: RestateConfig{
			ListenAddr: getEnv("RESTATE_LISTEN_ADDR", ":9081"),
		},
		Kafka: kafkaFromEnv(),
		Email: emailFromEnv(),
		Telemetry: TelemetryConfig{
			TracesEndpoint: getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""),
		},
	}

	var err error
	if cfg.HTTP.TypedErrors, err = getBool("HTTP_TYPED_ERRORS", false); err != nil {
		return Config{}, err
	}
	if cfg.Claims.StrictReserveFollowUp, err = getBool("CLAIMS_RESERVE_FOLLOWUP_STRICT", false); err != nil {
		return Config{}, err
	}
	if cfg.Restate.Enabled, err = getBool("RESTATE_ENABLED", false); err != nil {
		return Config{}, err
	}

	delay, err := time.ParseDuration(getEnv("CLAIMS_FOLLOWUP_DELAY", claims.DefaultFollowUpDelay.String()))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLAIMS_FOLLOWUP_DELAY: %w", err)
	}
	if delay <= 0 {
		return Config{}, fmt.Errorf("CLAIMS_FOLLOWUP_DELAY must be positive, got %s", delay)
	}
	cfg.Claims.FollowUpDelay = delay

	switch cfg.Claims.StatusIDParam {
	case "id", "transaccion":
	default:
		return Config{}, fmt.Errorf("CLAIMS_STATUS_ID_PARAM must be id or transaccion, got %q", cfg.Claims.StatusIDParam)
	}

	portStr := getEnv("SINIESTROS_DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Config{}, fmt.Errorf("parse SINIESTROS_DB_PORT: %w", err)
	}
	cfg.Database = DatabaseConfig{
		Enabled: getEnv("SINIESTROS_DB_HOST", "") != "",
		DatabaseConfig: postgres.DatabaseConfig{
			Host:     getEnv("SINIESTROS_DB_HOST", ""),
			Port:     port,
			Database: getEnv("SINIESTROS_DB_NAME", "siniestros"),
			User:     getEnv("SINIESTROS_DB_USER", "siniestros"),
			Password: getEnv("SINIESTROS_DB_PASSWORD", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NotifierConfig is the subset used by the alert notifier.
type NotifierConfig struct {
	ServiceName string
	Kafka       KafkaConfig
	Email       EmailConfig
}

// LoadNotifier reads the notifier configuration. At least one broker is
// required.
func LoadNotifier() (NotifierConfig, error) {
	cfg := NotifierConfig{
		ServiceName: getEnv("SERVICE_NAME", "siniestros-notifier"),
		Kafka:       kafkaFromEnv(),
		Email:       emailFromEnv(),
	}
	if !cfg.Kafka.Enabled() {
		return NotifierConfig{}, errors.New("missing required configuration: KAFKA_BROKERS")
	}
	return cfg, nil
}

func kafkaFromEnv() KafkaConfig {
	return KafkaConfig{
		Brokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		ClaimsTopic: getEnv("KAFKA_CLAIMS_TOPIC", "siniestros.v1"),
		AlertsGroup: getEnv("KAFKA_ALERTS_GROUP_ID", "siniestros-alerts"),
	}
}

func emailFromEnv() EmailConfig {
	return EmailConfig{
		AlertRecipient: getEnv("ALERT_TO_EMAIL", "operaciones@example.local"),
	}
}

func (c Config) validate() error {
	var missing []string
	required := []struct{ key, value string }{
		{"API_BASE_URL", c.Upstream.BaseURL},
		{"CLIENT_ID", c.Upstream.ClientID},
		{"CLIENT_SECRET", c.Upstream.ClientSecret},
		{"CLAIMS_RESERVE_ENTIDAD_COLOCADORA", c.Claims.Reserve.EntidadColocadora.String()},
		{"CLAIMS_RESERVE_SISTEMA_ORIGEN", c.Claims.Reserve.SistemaOrigen.String()},
		{"CLAIMS_RESERVE_ID_CANAL", c.Claims.Reserve.IDCanal.String()},
		{"CLAIMS_RESERVE_USUARIO_CREACION", c.Claims.Reserve.UsuarioCreacion},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var errs []error
	for key, n := range map[string]json.Number{
		"CLAIMS_RESERVE_ENTIDAD_COLOCADORA": c.Claims.Reserve.EntidadColocadora,
		"CLAIMS_RESERVE_SISTEMA_ORIGEN":     c.Claims.Reserve.SistemaOrigen,
		"CLAIMS_RESERVE_ID_CANAL":           c.Claims.Reserve.IDCanal,
	} {
		if _, err := n.Int64(); err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
