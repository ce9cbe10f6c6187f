package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	platformstrings "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/strings"
)

// Config captures everything the pipeline and the metricsd daemon read from
// the environment. FromEnv keeps main lean; services receive plain values.
type Config struct {
	Addr     string
	LogLevel string

	// Consent gate. When true, Collect rejects calls without a consent
	// assertion before touching any record.
	ConsentRequired bool

	// Noise policy bounds for the privacy engine.
	EpsilonFloor   float64
	EpsilonCeiling float64
	EpsilonDefault float64

	// Argon2id cost for passphrase-derived roots. Defaults are the expensive
	// production profile; the vault package owns the test-build override.
	KDFTime      uint32
	KDFMemoryKiB uint32
	KDFThreads   uint8

	// Root key material for the vault, base64 raw 32 bytes. Empty means the
	// daemon runs with an ephemeral key (sealed data does not survive restart).
	RootKeyBase64 string

	// HS256 secret for consent attestations.
	AttestationKey string

	// Per-field sensitivity overrides for the noise guard.
	Sensitivity domain.SensitivityMap

	// Budget ledger sizing. Cap is epsilon per principal per window.
	BudgetCap    float64
	BudgetWindow time.Duration

	// Audit pipeline sizing.
	AuditBuffer int

	// Optional backing services. Empty values mean the in-memory fallbacks.
	PostgresDSN  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
}

const envPrefix = "PAINTRACKER_"

// FromEnv builds a Config from PAINTRACKER_* environment variables.
// Malformed numeric values are errors rather than silent defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:           envStr("ADDR", ":8080"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		RootKeyBase64:  envStr("ROOT_KEY", ""),
		AttestationKey: envStr("ATTESTATION_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:    envStr("POSTGRES_DSN", ""),
		RedisURL:       envStr("REDIS_URL", ""),
		KafkaTopic:     envStr("KAFKA_TOPIC", "metrics.audit.v1"),
	}
	if brokers := envStr("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}

	var err error
	if cfg.ConsentRequired, err = envBool("CONSENT_REQUIRED", true); err != nil {
		return Config{}, err
	}
	if cfg.EpsilonFloor, err = envFloat("EPSILON_FLOOR", 0.01); err != nil {
		return Config{}, err
	}
	if cfg.EpsilonCeiling, err = envFloat("EPSILON_CEILING", 10); err != nil {
		return Config{}, err
	}
	if cfg.EpsilonDefault, err = envFloat("EPSILON_DEFAULT", 1); err != nil {
		return Config{}, err
	}
	if cfg.BudgetCap, err = envFloat("BUDGET_CAP", 20); err != nil {
		return Config{}, err
	}
	if cfg.BudgetWindow, err = envDuration("BUDGET_WINDOW", 24*time.Hour); err != nil {
		return Config{}, err
	}

	kdfTime, err := envUint("KDF_TIME", 4)
	if err != nil {
		return Config{}, err
	}
	kdfMemory, err := envUint("KDF_MEMORY_KB", 128*1024)
	if err != nil {
		return Config{}, err
	}
	kdfThreads, err := envUint("KDF_THREADS", 4)
	if err != nil {
		return Config{}, err
	}
	cfg.KDFTime = uint32(kdfTime)
	cfg.KDFMemoryKiB = uint32(kdfMemory)
	cfg.KDFThreads = uint8(kdfThreads)

	auditBuffer, err := envUint("AUDIT_BUFFER", 1024)
	if err != nil {
		return Config{}, err
	}
	cfg.AuditBuffer = int(auditBuffer)

	cfg.Sensitivity, err = sensitivityFromEnv()
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.EpsilonFloor <= 0 {
		return fmt.Errorf("config: epsilon floor must be positive, got %v", c.EpsilonFloor)
	}
	if c.EpsilonCeiling < c.EpsilonFloor {
		return fmt.Errorf("config: epsilon ceiling %v below floor %v", c.EpsilonCeiling, c.EpsilonFloor)
	}
	if c.EpsilonDefault < c.EpsilonFloor || c.EpsilonDefault > c.EpsilonCeiling {
		return fmt.Errorf("config: epsilon default %v outside [%v, %v]", c.EpsilonDefault, c.EpsilonFloor, c.EpsilonCeiling)
	}
	if c.BudgetCap <= 0 {
		return fmt.Errorf("config: budget cap must be positive, got %v", c.BudgetCap)
	}
	if c.KDFTime == 0 || c.KDFMemoryKiB == 0 || c.KDFThreads == 0 {
		return fmt.Errorf("config: KDF parameters must be positive")
	}
	return nil
}

// sensitivityFromEnv reads PAINTRACKER_SENSITIVITY_<FIELD> overrides. Field
// names map from the dotted bundle names by uppercasing and replacing dots
// with underscores (resilience.composure -> RESILIENCE_COMPOSURE).
func sensitivityFromEnv() (domain.SensitivityMap, error) {
	var b domain.MetricBundle
	overrides := domain.SensitivityMap{}
	var firstErr error
	b.VisitFields(func(name string, _ *float64) {
		key := envPrefix + "SENSITIVITY_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
		raw, ok := os.LookupEnv(key)
		if !ok || firstErr != nil {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			firstErr = fmt.Errorf("config: %s: %w", key, err)
			return
		}
		overrides[name] = v
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if len(overrides) == 0 {
		return nil, nil
	}
	return overrides, nil
}

func envStr(name, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
		return v
	}
	return fallback
}

func envBool(name string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(envPrefix + name)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s%s: %w", envPrefix, name, err)
	}
	return v, nil
}

func envFloat(name string, fallback float64) (float64, error) {
	raw, ok := os.LookupEnv(envPrefix + name)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, name, err)
	}
	return v, nil
}

func envUint(name string, fallback uint64) (uint64, error) {
	raw, ok := os.LookupEnv(envPrefix + name)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, name, err)
	}
	return v, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(envPrefix + name)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, name, err)
	}
	return v, nil
}
