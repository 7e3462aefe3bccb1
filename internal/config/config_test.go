package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.App.Name != "donor-ai" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Database.DBName != "donor_ai" {
		t.Errorf("Database.DBName = %q", cfg.Database.DBName)
	}
	if cfg.AI.Provider != "openai" {
		t.Errorf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.Session.TTLHours != 24 {
		t.Errorf("Session.TTLHours = %d", cfg.Session.TTLHours)
	}
	if cfg.Review.MaxAttempts != 3 {
		t.Errorf("Review.MaxAttempts = %d", cfg.Review.MaxAttempts)
	}
}

func TestDurationHelpers(t *testing.T) {
	sc := &SessionConfig{TTLHours: 48, SweepInterval: 5}
	if got := sc.SessionTTL(); got != 48*time.Hour {
		t.Errorf("SessionTTL() = %v", got)
	}
	if got := sc.SweepEvery(); got != 5*time.Minute {
		t.Errorf("SweepEvery() = %v", got)
	}

	// 零值回退到默认
	zero := &SessionConfig{}
	if got := zero.SessionTTL(); got != 24*time.Hour {
		t.Errorf("SessionTTL() zero = %v, want 24h", got)
	}
	if got := zero.SweepEvery(); got != 15*time.Minute {
		t.Errorf("SweepEvery() zero = %v, want 15m", got)
	}

	ai := &AIConfig{}
	if got := ai.CompletionTimeout(); got != 60*time.Second {
		t.Errorf("CompletionTimeout() zero = %v, want 60s", got)
	}
}

func TestGetDSN(t *testing.T) {
	dc := &DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "donor_ai", SSLMode: "disable",
	}
	want := "host=db port=5432 user=u password=p dbname=donor_ai sslmode=disable"
	if got := dc.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
