package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"

	"github.com/suyash-sneo/scriptstore"
	redisstore "github.com/suyash-sneo/scriptstore/store/redis"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Memory     bool
}

// NewRootCommand creates the root command for the scriptstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "scriptstore",
		Short:         "Store and serve named scripts from Redis",
		Long:          "scriptstore keeps script records and their name index in Redis and serves them over a JSON HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Memory, "memory", false, "use an embedded in-memory redis instead of the configured one")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))

	return cmd
}

func (o *RootOptions) load() (scriptstore.Config, *logrusLogger, error) {
	cfg, err := scriptstore.LoadConfig(o.ConfigPath)
	if err != nil {
		return scriptstore.Config{}, nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
		if err := cfg.Validate(); err != nil {
			return scriptstore.Config{}, nil, err
		}
	}
	logger, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return scriptstore.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

// backend bundles the store connection with the repository built on it.
type backend struct {
	store *redisstore.Store
	mini  *miniredis.Miniredis
	repo  *scriptstore.Repository
}

func openBackend(ctx context.Context, cfg scriptstore.Config, memory bool, logger scriptstore.Logger) (*backend, error) {
	opts := redisOptions(cfg.Redis)
	var mini *miniredis.Miniredis
	if memory {
		m, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start in-memory redis: %w", err)
		}
		mini = m
		opts = redisstore.Options{Addr: m.Addr(), KeyPrefix: cfg.Redis.KeyPrefix}
		logger.Warn("using in-memory redis; data is lost on exit", scriptstore.F("addr", m.Addr()))
	}

	st, err := redisstore.New(ctx, opts)
	if err != nil {
		if mini != nil {
			mini.Close()
		}
		return nil, err
	}
	return &backend{
		store: st,
		mini:  mini,
		repo:  scriptstore.NewRepository(st, scriptstore.WithLogger(logger)),
	}, nil
}

func (b *backend) Close() error {
	err := b.store.Close()
	if b.mini != nil {
		b.mini.Close()
	}
	return err
}

func redisOptions(c scriptstore.RedisConfig) redisstore.Options {
	return redisstore.Options{
		URL:            c.URL,
		Addr:           c.Addr,
		SentinelAddrs:  c.SentinelAddrs,
		SentinelMaster: c.SentinelMaster,
		Username:       c.Username,
		Password:       c.Password,
		DB:             c.DB,
		KeyPrefix:      c.KeyPrefix,
		TLS:            c.TLS,
	}
}
