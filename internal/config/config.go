// Package config loads the service settings from the environment and
// an optional .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Abraxas-365/craftable/configx"
	"github.com/Abraxas-365/craftable/errx"
	"github.com/joho/godotenv"
)

// EnvPrefix is stripped from environment variables, so the server
// address comes from WABRIDGE_SERVER_ADDR and so on.
const EnvPrefix = "WABRIDGE_"

var (
	Registry = errx.NewRegistry("CONFIG")

	ErrLoadFailed     = Registry.Register("LOAD_FAILED", errx.TypeSystem, 500, "Failed to load configuration")
	ErrMissingSetting = Registry.Register("MISSING_SETTING", errx.TypeValidation, 500, "Required setting is missing")
	ErrInvalidSetting = Registry.Register("INVALID_SETTING", errx.TypeValidation, 500, "Setting has an invalid value")
)

var deploymentTypes = map[string]bool{
	"local":       true,
	"development": true,
	"staging":     true,
	"production":  true,
}

// Settings is the full configuration surface of the relay.
type Settings struct {
	ServerAddr     string
	DeploymentType string

	BackendURL    string
	BackendAPIKey string

	MetaAPIVersion    string
	MetaPhoneNumberID string
	MetaAccessToken   string
	MetaVerifyToken   string
	MetaAppSecrets    string // comma-separated, tried in order
	AlwaysOKToMeta    bool

	Maintenance         bool
	RetentionWindow     time.Duration
	MessageAgeThreshold time.Duration
	DevFilterPrefix     string

	MockBackend   bool
	MockMeta      bool
	MockErrorRate float64

	EventLogDriver      string // memory, postgres or mongo
	EventLogPostgresDSN string
	EventLogMongoURI    string
}

// Load reads settings from envFile (when non-empty) and the process
// environment, environment winning.
func Load(envFile string) (*Settings, error) {
	// Defaults live in the As*Default reads below; configx's map source
	// is a no-op in this craftable release, so WithDefaults cannot carry
	// them.
	builder := configx.NewBuilder()

	// The env file feeds the process environment so its entries use
	// the same WABRIDGE_ names as real variables. Already-set
	// variables win over file entries.
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, Registry.New(ErrLoadFailed).WithCause(err).WithDetail("env_file", envFile)
			}
		}
	}

	cfg, err := builder.FromEnv(EnvPrefix).Build()
	if err != nil {
		return nil, Registry.NewWithCause(ErrLoadFailed, err)
	}

	s := &Settings{
		ServerAddr:     cfg.Get("server.addr").AsStringDefault(":8080"),
		DeploymentType: cfg.Get("deployment.type").AsString(),

		BackendURL:    cfg.Get("backend.url").AsStringDefault("http://localhost:8000"),
		BackendAPIKey: cfg.Get("backend.api.key").AsString(),

		MetaAPIVersion:    cfg.Get("meta.api.version").AsStringDefault("v22.0"),
		MetaPhoneNumberID: cfg.Get("meta.phone.number.id").AsString(),
		MetaAccessToken:   cfg.Get("meta.access.token").AsString(),
		MetaVerifyToken:   cfg.Get("meta.verify.token").AsString(),
		MetaAppSecrets:    cfg.Get("meta.app.secrets").AsString(),
		AlwaysOKToMeta:    cfg.Get("meta.always.ok").AsBoolDefault(true),

		Maintenance:         cfg.Get("maintenance.mode").AsBoolDefault(false),
		RetentionWindow:     time.Duration(cfg.Get("chat.retention.hours").AsIntDefault(3)) * time.Hour,
		MessageAgeThreshold: time.Duration(cfg.Get("message.age.threshold.seconds").AsIntDefault(86400)) * time.Second,
		DevFilterPrefix:     cfg.Get("dev.filter.prefix").AsStringDefault("!d "),

		MockBackend:   cfg.Get("mock.backend").AsBoolDefault(false),
		MockMeta:      cfg.Get("mock.meta").AsBoolDefault(false),
		MockErrorRate: cfg.Get("mock.error.rate").AsFloatDefault(0),

		EventLogDriver:      cfg.Get("eventlog.driver").AsStringDefault("memory"),
		EventLogPostgresDSN: cfg.Get("eventlog.postgres.dsn").AsString(),
		EventLogMongoURI:    cfg.Get("eventlog.mongo.uri").AsString(),
	}

	return s, s.validate()
}

func (s *Settings) validate() error {
	required := map[string]string{
		"deployment.type":      s.DeploymentType,
		"meta.phone.number.id": s.MetaPhoneNumberID,
		"meta.verify.token":    s.MetaVerifyToken,
		"meta.app.secrets":     s.MetaAppSecrets,
	}
	if !s.MockMeta {
		required["meta.access.token"] = s.MetaAccessToken
	}
	if !s.MockBackend {
		required["backend.api.key"] = s.BackendAPIKey
	}

	for key, value := range required {
		if value == "" {
			return Registry.New(ErrMissingSetting).WithDetail("setting", key)
		}
	}

	if !deploymentTypes[s.DeploymentType] {
		return Registry.New(ErrInvalidSetting).
			WithDetail("setting", "deployment.type").
			WithDetail("value", s.DeploymentType).
			WithDetail("allowed", "local, development, staging, production")
	}

	switch s.EventLogDriver {
	case "memory":
	case "postgres":
		if s.EventLogPostgresDSN == "" {
			return Registry.New(ErrMissingSetting).WithDetail("setting", "eventlog.postgres.dsn")
		}
	case "mongo":
		if s.EventLogMongoURI == "" {
			return Registry.New(ErrMissingSetting).WithDetail("setting", "eventlog.mongo.uri")
		}
	default:
		return Registry.New(ErrInvalidSetting).
			WithDetail("setting", "eventlog.driver").
			WithDetail("value", s.EventLogDriver).
			WithDetail("allowed", "memory, postgres, mongo")
	}

	if s.MockErrorRate < 0 || s.MockErrorRate > 1 {
		return Registry.New(ErrInvalidSetting).
			WithDetail("setting", "mock.error.rate").
			WithDetail("value", fmt.Sprintf("%v", s.MockErrorRate))
	}

	return nil
}
