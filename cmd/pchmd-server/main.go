//go:build linux

// Command pchmd-server runs the telemetry daemon: it polls local hardware
// sensors on a fixed tick, maintains rolling per-sensor statistics, and
// fans out an encoded snapshot to every connected pchmd-client over QUIC.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pchmd/pchmd/internal/daemon"
	"github.com/pchmd/pchmd/pkg/broadcast"
	"github.com/pchmd/pchmd/pkg/certstore"
	"github.com/pchmd/pchmd/pkg/sensor"
	"github.com/pchmd/pchmd/pkg/sensor/hwmon"
	"github.com/pchmd/pchmd/pkg/snapshot"
	"github.com/pchmd/pchmd/pkg/transport"
	"github.com/spf13/cobra"
)

type opts struct {
	listen       string
	updatePeriod time.Duration
	ewmaAlpha    float64
	staleTime    time.Duration
	configDir    string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "pchmd-server",
		Short: "Hardware-telemetry daemon with QUIC fan-out",
		Long: `pchmd-server polls local hardware sensors, maintains rolling per-sensor
statistics (current, EWMA average, min, max, staleness), and broadcasts a
versioned snapshot to every connected pchmd-client over an authenticated,
encrypted QUIC connection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().StringVar(&o.listen, "listen", transport.DefaultListenAddr, "UDP address to bind the QUIC listener on")
	root.Flags().DurationVar(&o.updatePeriod, "update-period", time.Second, "sensor poll interval")
	root.Flags().Float64Var(&o.ewmaAlpha, "ewma-alpha", 0.2, "EWMA smoothing factor for the running average (0,1]")
	root.Flags().DurationVar(&o.staleTime, "stale-time", 10*time.Second, "duration after which an un-refreshed sensor is marked stale")
	root.Flags().StringVar(&o.configDir, "config-dir", "", "override the platform default config directory for the cert/key pair")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	if o.ewmaAlpha <= 0 || o.ewmaAlpha > 1 {
		return fmt.Errorf("ewma-alpha must be in (0,1]")
	}
	if o.updatePeriod <= 0 {
		return fmt.Errorf("update-period must be > 0")
	}

	logger := newLogger()

	certPath, keyPath, err := resolveCertPaths(o.configDir)
	if err != nil {
		return fmt.Errorf("resolve config paths: %w", err)
	}
	if !certstore.Exists(certPath, keyPath) {
		return fmt.Errorf("no valid certificate/key pair at %s / %s; run pchmd-gen-cert first", certPath, keyPath)
	}
	store, err := certstore.Load(certPath, keyPath)
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := broadcast.New[[]byte](backlogFor(o.updatePeriod), logger)

	tlsConf := certstore.ServerTLSConfig(store, transport.NextProtos)
	srv, err := transport.NewServer(o.listen, tlsConf, bus, logger)
	if err != nil {
		return fmt.Errorf("start transport endpoint: %w", err)
	}
	defer srv.Close()

	logger.Info("pchmd-server listening", "addr", srv.Addr(), "schema_version", snapshot.CurrentVersion().String())

	sources := []sensor.Source{hwmon.New(logger)}
	cfg := daemon.Config{
		Period:    o.updatePeriod,
		EWMAAlpha: o.ewmaAlpha,
		StaleTime: o.staleTime,
		Hostname:  snapshot.Hostname(),
		OS:        snapshot.OperatingSystem(),
	}
	loop := daemon.New(cfg, sources, bus, logger, nil)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	loopErr := loop.Run(ctx)

	bus.Close()
	if err := <-serveErr; err != nil && ctx.Err() == nil {
		return fmt.Errorf("transport endpoint: %w", err)
	}
	if loopErr != nil && ctx.Err() == nil {
		return fmt.Errorf("update loop: %w", loopErr)
	}
	logger.Info("pchmd-server stopped")
	return nil
}

// backlogFor sizes the broadcast bus's per-subscriber backlog to roughly
// two seconds of snapshots, ceil(2s/period), per pkg/broadcast.New's
// documented guidance.
func backlogFor(period time.Duration) int {
	if period <= 0 {
		return 2
	}
	n := int((2*time.Second + period - 1) / period)
	if n < 1 {
		n = 1
	}
	return n
}

func resolveCertPaths(configDir string) (certPath, keyPath string, err error) {
	if configDir == "" {
		return certstore.Paths()
	}
	return filepath.Join(configDir, "pchmd.crt"), filepath.Join(configDir, "pchmd.key"), nil
}

func newLogger() *slog.Logger {
	if fi, err := os.Stdout.Stat(); err == nil && (fi.Mode()&os.ModeCharDevice) == 0 {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
