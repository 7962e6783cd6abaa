package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Cache:    loadCacheConfig(),
		Auth:     loadAuthConfig(),
		S3:       loadS3Config(),
		Mail:     loadMailConfig(),
		Audit:    loadAuditConfig(),
	}
	cfg.Auth.IssuerURL = "https://tenant.auth0.com/"
	cfg.Auth.Audience = "https://api.envsync.cloud"
	return cfg
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsMissingIssuer(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.IssuerURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing issuer URL must fail validation")
	}
}

func TestValidateRejectsBadCacheBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown cache backend must fail validation")
	}
}

func TestValidateRejectsMailWithoutHost(t *testing.T) {
	cfg := validConfig()
	cfg.Mail.Enabled = true
	cfg.Mail.Host = ""
	if err := cfg.Validate(); err == nil {
		t.Error("enabled mail without host must fail validation")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENVSYNC_PORT", "9999")
	t.Setenv("ENVSYNC_READ_TIMEOUT", "5s")
	t.Setenv("ENVSYNC_CACHE_BACKEND", "redis")

	server := loadServerConfig()
	if server.Port != "9999" {
		t.Errorf("Port = %q, want 9999", server.Port)
	}
	if server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", server.ReadTimeout)
	}

	cache := loadCacheConfig()
	if cache.Backend != "redis" {
		t.Errorf("Backend = %q, want redis", cache.Backend)
	}
}

func TestAddresses(t *testing.T) {
	server := ServerConfig{Host: "127.0.0.1", Port: "8080", MetricsPort: "9090"}
	if server.Address() != "127.0.0.1:8080" {
		t.Errorf("Address() = %q", server.Address())
	}
	if server.MetricsAddress() != "127.0.0.1:9090" {
		t.Errorf("MetricsAddress() = %q", server.MetricsAddress())
	}
}
