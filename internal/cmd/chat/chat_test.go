package chat

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8086" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "chat.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.JWTIssuer != "stationhouse" {
		t.Fatalf("expected default issuer, got %q", cfg.JWTIssuer)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("STATIONHOUSE_CHAT_HTTP_ADDR", "env-chat")
	t.Setenv("STATIONHOUSE_CHAT_DB_PATH", "env-db")
	t.Setenv("STATIONHOUSE_AUTH_JWT_SECRET", "env-secret")

	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	args := []string{
		"-http-addr", "flag-chat",
		"-db-path", "flag-db",
		"-jwt-issuer", "flag-issuer",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-chat" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "flag-db" {
		t.Fatalf("expected flag db path, got %q", cfg.DBPath)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("expected env jwt secret, got %q", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "flag-issuer" {
		t.Fatalf("expected flag issuer, got %q", cfg.JWTIssuer)
	}
}
