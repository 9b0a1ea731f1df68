// Command pchmd-client connects to a pchmd-server instance and renders its
// sensor snapshots as a continuously refreshed terminal table.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pchmd/pchmd/pkg/certstore"
	"github.com/pchmd/pchmd/pkg/sensor"
	"github.com/pchmd/pchmd/pkg/snapshot"
	"github.com/pchmd/pchmd/pkg/transport"
	"github.com/spf13/cobra"
)

type opts struct {
	addr      string
	configDir string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "pchmd-client [server-addr]",
		Short: "Render a pchmd-server's sensor snapshots as a live terminal table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				o.addr = args[0]
			}
			return run(cmd.Context(), o)
		},
	}

	root.Flags().StringVar(&o.addr, "listen", transport.DefaultListenAddr, "server address to dial")
	root.Flags().StringVar(&o.configDir, "config-dir", "", "override the platform default config directory for the pinned certificate")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	certPath, _, err := resolveCertPaths(o.configDir)
	if err != nil {
		return fmt.Errorf("resolve config paths: %w", err)
	}
	leaf, err := certstore.LoadLeaf(certPath)
	if err != nil {
		return fmt.Errorf("load server certificate: %w", err)
	}
	tlsConf := certstore.ClientTLSConfig(leaf, transport.NextProtos)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := transport.Dial(ctx, o.addr, tlsConf)
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.addr, err)
	}
	defer client.Close()

	for {
		payload, err := client.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive snapshot: %w", err)
		}

		info, err := snapshot.Decode(payload)
		if err != nil {
			slog.Warn("discarding malformed snapshot", "error", err)
			continue
		}
		render(info)
	}
}

// render redraws the table in place by moving the cursor up and clearing
// to the end of the screen before printing the next frame.
var lastHeight int

func render(info *snapshot.ComputerInfo) {
	if lastHeight > 0 {
		fmt.Printf("\x1b[%dA\x1b[J", lastHeight)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Sensor", "Source", "Current", "Average", "Min", "Max", "Unit", "Stale"})

	for _, s := range info.Sensors {
		t.AppendRow(table.Row{
			s.SensorName,
			s.DataSourceName,
			formatValue(s.Current),
			formatValue(s.Average),
			formatValue(s.Minimum),
			formatValue(s.Maximum),
			s.Unit.String(),
			s.IsStale,
		})
	}

	header := fmt.Sprintf("%s (%s) — schema v%s\n", info.Name, info.OperatingSystem, info.ServerVersion.String())
	fmt.Print(header)
	t.Render()
	lastHeight = len(info.Sensors) + 5
}

func formatValue(v sensor.Value) string {
	switch v.Kind {
	case sensor.KindFloat, sensor.KindRawBool:
		return fmt.Sprintf("%.3f", v.Float)
	case sensor.KindText:
		return v.Text
	case sensor.KindBool:
		return fmt.Sprintf("%v", v.Bool)
	default:
		return "-"
	}
}

func resolveCertPaths(configDir string) (certPath, keyPath string, err error) {
	if configDir == "" {
		return certstore.Paths()
	}
	return filepath.Join(configDir, "pchmd.crt"), filepath.Join(configDir, "pchmd.key"), nil
}
