// Command redisless-server runs a standalone redisless server.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/raniellyferreira/redisless"
	"github.com/raniellyferreira/redisless/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "redisless-server:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := newFlagSet()
	cfg, err := LoadConfig(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if printVersion, _ := fs.GetBool("version"); printVersion {
		for k, v := range redisless.VersionInfo() {
			fmt.Printf("%s: %s\n", k, v)
		}
		return nil
	}

	zl, err := redisless.NewLogger(redisless.LogConfig{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return err
	}
	defer zl.Sync()

	var storageOpts []storage.MemoryOption
	if cfg.Shards > 0 {
		storageOpts = append(storageOpts, storage.WithShardCount(cfg.Shards))
	}
	stor := storage.NewMemory(storageOpts...)
	defer stor.Close()

	opts := []redisless.Option{
		redisless.WithHost(cfg.Host),
		redisless.WithLogger(redisless.NewZapLogger(zl)),
		redisless.WithIdleTimeout(cfg.IdleTimeout),
		redisless.WithMaxClients(cfg.MaxClients),
	}
	if cfg.ShutdownTimeout > 0 {
		opts = append(opts, redisless.WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	if cfg.ScriptCacheSize > 0 {
		opts = append(opts, redisless.WithScriptCacheSize(cfg.ScriptCacheSize))
	}

	srv, err := redisless.New(stor, cfg.Port, opts...)
	if err != nil {
		return err
	}
	if _, err := srv.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zl.Info("shutting down", zap.String("signal", sig.String()))

	_, err = srv.Stop()
	return err
}
