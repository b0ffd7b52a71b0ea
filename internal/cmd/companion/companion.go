// Package companion parses companion command flags and starts the engine.
package companion

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/regenmon/internal/platform/cmd"
	server "github.com/louisbranch/regenmon/internal/services/companion/server"
)

// Config holds companion command configuration.
type Config struct {
	Port int    `env:"REGENMON_COMPANION_PORT" envDefault:"8080"`
	Addr string `env:"REGENMON_COMPANION_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The companion server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The companion server listen address (overrides -port)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the companion engine API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCompanion, func(context.Context) error {
		if cfg.Addr != "" {
			return server.RunWithAddr(ctx, cfg.Addr)
		}
		return server.Run(ctx, cfg.Port)
	})
}
