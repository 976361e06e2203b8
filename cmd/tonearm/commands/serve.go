package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/tonearm/tonearm/pkg/fingerprint"
	"github.com/tonearm/tonearm/pkg/httpapi"
	"github.com/tonearm/tonearm/pkg/kv"
	"github.com/tonearm/tonearm/pkg/library"
	"github.com/tonearm/tonearm/pkg/resample"
)

// serveConfig is the YAML config file schema. Every field is optional;
// flags override the file.
type serveConfig struct {
	Addr    string             `yaml:"addr"`
	DataDir string             `yaml:"data_dir"`
	Engine  fingerprint.Config `yaml:"engine"`
}

func defaultServeConfig() serveConfig {
	dataDir := "tonearm-data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "tonearm")
	}
	return serveConfig{
		Addr:    "127.0.0.1:8787",
		DataDir: dataDir,
		Engine:  fingerprint.DefaultConfig(),
	}
}

func loadServeConfig(path string) (serveConfig, error) {
	cfg := defaultServeConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func init() {
	var (
		configPath string
		addr       string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Rebuild the index from the recording store and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "f", "", "YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "recording store directory")

	rootCmd.AddCommand(cmd)
}

func runServe(ctx context.Context, cfg serveConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.DataDir})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	session, err := fingerprint.New(cfg.Engine)
	if err != nil {
		return err
	}
	lib := library.New(store, session, resample.Resample, logger)

	// Rebuild the index before accepting any request: no socket exists
	// until the replay has finished.
	logger.Info("rebuilding index", "data_dir", cfg.DataDir)
	start := time.Now()
	n, err := lib.Replay(ctx)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	logger.Info("index ready", "recordings", n, "took", time.Since(start))

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("serving", "addr", ln.Addr().String())

	srv := &http.Server{Handler: httpapi.New(lib, logger)}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
