package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WABRIDGE_DEPLOYMENT_TYPE", "production")
	t.Setenv("WABRIDGE_BACKEND_API_KEY", "backend-key")
	t.Setenv("WABRIDGE_META_PHONE_NUMBER_ID", "111222333")
	t.Setenv("WABRIDGE_META_ACCESS_TOKEN", "token")
	t.Setenv("WABRIDGE_META_VERIFY_TOKEN", "verify")
	t.Setenv("WABRIDGE_META_APP_SECRETS", "s1,s2")
}

// TestLoad_Defaults fills everything not set from defaults.
func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q", s.ServerAddr)
	}
	if s.MetaAPIVersion != "v22.0" {
		t.Errorf("MetaAPIVersion = %q", s.MetaAPIVersion)
	}
	if !s.AlwaysOKToMeta {
		t.Error("AlwaysOKToMeta = false, want true by default")
	}
	if s.RetentionWindow != 3*time.Hour {
		t.Errorf("RetentionWindow = %v", s.RetentionWindow)
	}
	if s.MessageAgeThreshold != 24*time.Hour {
		t.Errorf("MessageAgeThreshold = %v", s.MessageAgeThreshold)
	}
	if s.EventLogDriver != "memory" {
		t.Errorf("EventLogDriver = %q", s.EventLogDriver)
	}
	if s.DevFilterPrefix != "!d " {
		t.Errorf("DevFilterPrefix = %q", s.DevFilterPrefix)
	}
	if s.MetaAppSecrets != "s1,s2" {
		t.Errorf("MetaAppSecrets = %q", s.MetaAppSecrets)
	}
}

// TestLoad_Overrides reads prefixed environment variables into their
// nested keys.
func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WABRIDGE_SERVER_ADDR", ":9090")
	t.Setenv("WABRIDGE_CHAT_RETENTION_HOURS", "6")
	t.Setenv("WABRIDGE_MAINTENANCE_MODE", "true")
	t.Setenv("WABRIDGE_EVENTLOG_DRIVER", "postgres")
	t.Setenv("WABRIDGE_EVENTLOG_POSTGRES_DSN", "postgres://localhost/wabridge")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.ServerAddr != ":9090" {
		t.Errorf("ServerAddr = %q", s.ServerAddr)
	}
	if s.RetentionWindow != 6*time.Hour {
		t.Errorf("RetentionWindow = %v", s.RetentionWindow)
	}
	if !s.Maintenance {
		t.Error("Maintenance = false")
	}
	if s.EventLogDriver != "postgres" || s.EventLogPostgresDSN == "" {
		t.Errorf("eventlog = (%q, %q)", s.EventLogDriver, s.EventLogPostgresDSN)
	}
}

// TestLoad_EnvFile loads variables from a file without overriding the
// real environment.
func TestLoad_EnvFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WABRIDGE_SERVER_ADDR", ":7070")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "WABRIDGE_SERVER_ADDR=:9999\nWABRIDGE_DEV_FILTER_PREFIX=\"!t \"\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	s, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.ServerAddr != ":7070" {
		t.Errorf("ServerAddr = %q, real environment should win", s.ServerAddr)
	}
	if s.DevFilterPrefix != "!t " {
		t.Errorf("DevFilterPrefix = %q, want value from env file", s.DevFilterPrefix)
	}
}

// TestLoad_Validation rejects incomplete or inconsistent settings.
func TestLoad_Validation(t *testing.T) {
	t.Run("missing verify token", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WABRIDGE_META_VERIFY_TOKEN", "")
		if _, err := Load(""); err == nil {
			t.Fatal("Load() = nil error without verify token")
		}
	})

	t.Run("bad deployment type", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WABRIDGE_DEPLOYMENT_TYPE", "qa")
		if _, err := Load(""); err == nil {
			t.Fatal("Load() = nil error for unknown deployment type")
		}
	})

	t.Run("postgres driver without dsn", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WABRIDGE_EVENTLOG_DRIVER", "postgres")
		if _, err := Load(""); err == nil {
			t.Fatal("Load() = nil error for postgres driver without DSN")
		}
	})

	t.Run("unknown eventlog driver", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WABRIDGE_EVENTLOG_DRIVER", "redis")
		if _, err := Load(""); err == nil {
			t.Fatal("Load() = nil error for unknown eventlog driver")
		}
	})

	t.Run("mock clients relax credentials", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WABRIDGE_META_ACCESS_TOKEN", "")
		t.Setenv("WABRIDGE_BACKEND_API_KEY", "")
		t.Setenv("WABRIDGE_MOCK_META", "true")
		t.Setenv("WABRIDGE_MOCK_BACKEND", "true")

		if _, err := Load(""); err != nil {
			t.Fatalf("Load() error = %v with mock clients", err)
		}
	})

	t.Run("error rate out of range", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("WABRIDGE_MOCK_ERROR_RATE", "1.5")
		if _, err := Load(""); err == nil {
			t.Fatal("Load() = nil error for error rate above 1")
		}
	})
}
