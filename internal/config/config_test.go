package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("unexpected api port %d", cfg.API.Port)
	}
	if cfg.Persistence.Driver != "postgres" {
		t.Errorf("unexpected driver %q", cfg.Persistence.Driver)
	}
	if cfg.Upload.MaxBytes != 5*1024*1024 {
		t.Errorf("unexpected upload limit %d", cfg.Upload.MaxBytes)
	}
	if cfg.Auth.TokenTTL != 30*24*time.Hour {
		t.Errorf("unexpected token ttl %s", cfg.Auth.TokenTTL)
	}
	if cfg.Worker.Concurrency != 4 || cfg.Worker.MetricsPort != 9091 {
		t.Errorf("unexpected worker config %+v", cfg.Worker)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("unexpected redis addr %q", cfg.Redis.Addr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("PERSISTENCE_DRIVER", " Redis ")
	t.Setenv("EXPORT_LINK_TTL", "15m")
	t.Setenv("CLAMD_ADDR", "tcp://clamd:3310")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("unexpected api port %d", cfg.API.Port)
	}
	if cfg.Persistence.Driver != "redis" {
		t.Errorf("expected normalized driver, got %q", cfg.Persistence.Driver)
	}
	if cfg.Export.LinkTTL != 15*time.Minute {
		t.Errorf("unexpected link ttl %s", cfg.Export.LinkTTL)
	}
	if cfg.Upload.ClamdAddr != "tcp://clamd:3310" {
		t.Errorf("unexpected clamd addr %q", cfg.Upload.ClamdAddr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing minio key": {"MINIO_ACCESS_KEY_ID": ""},
		"unknown driver":    {"PERSISTENCE_DRIVER": "mysql"},
		"bad port":          {"API_PORT": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	if got := d.DSN(); !strings.Contains(got, "host=db") || !strings.Contains(got, "dbname=n") {
		t.Fatalf("unexpected dsn %q", got)
	}
}
