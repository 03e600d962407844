// Package chat parses chat command flags and composes transport entrypoints.
package chat

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/firehall/stationhouse/internal/platform/cmd"
	server "github.com/firehall/stationhouse/internal/services/chat/app"
)

// Config holds chat command configuration.
type Config struct {
	HTTPAddr  string `env:"STATIONHOUSE_CHAT_HTTP_ADDR" envDefault:":8086"`
	DBPath    string `env:"STATIONHOUSE_CHAT_DB_PATH"   envDefault:"chat.db"`
	JWTSecret string `env:"STATIONHOUSE_AUTH_JWT_SECRET"`
	JWTIssuer string `env:"STATIONHOUSE_AUTH_JWT_ISSUER" envDefault:"stationhouse"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "chat HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "chat SQLite database path")
	fs.StringVar(&cfg.JWTIssuer, "jwt-issuer", cfg.JWTIssuer, "expected session token issuer")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the chat app and starts realtime transport behavior.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceChat, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:  cfg.HTTPAddr,
			DBPath:    cfg.DBPath,
			JWTSecret: cfg.JWTSecret,
			JWTIssuer: cfg.JWTIssuer,
		}); err != nil {
			return fmt.Errorf("serve chat: %w", err)
		}
		return nil
	})
}
