// Command pchmd-gen-cert generates the self-signed certificate/key pair
// pchmd-server and pchmd-client use to authenticate the QUIC connection.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pchmd/pchmd/pkg/certstore"
	"github.com/spf13/cobra"
)

type opts struct {
	configDir string
	force     bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "pchmd-gen-cert",
		Short: "Generate the pchmd server's self-signed certificate and private key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(o)
		},
	}

	root.Flags().StringVar(&o.configDir, "config-dir", "", "override the platform default config directory")
	root.Flags().BoolVar(&o.force, "force", false, "skip the overwrite confirmation prompt")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(o opts) error {
	certPath, keyPath, err := resolveCertPaths(o.configDir)
	if err != nil {
		return fmt.Errorf("resolve config paths: %w", err)
	}

	if certstore.Exists(certPath, keyPath) && !o.force {
		overwrite, err := confirmOverwrite(certPath, keyPath)
		if err != nil {
			return fmt.Errorf("confirmation prompt: %w", err)
		}
		if !overwrite {
			fmt.Println("aborted, existing certificate left in place")
			return nil
		}
	}

	certPEM, keyPEM, err := certstore.GenerateCertificate()
	if err != nil {
		return fmt.Errorf("generate certificate: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(certPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := certstore.Write(certPath, keyPath, certPEM, keyPEM); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}

	fmt.Printf("wrote certificate: %s\nwrote private key:  %s\n", certPath, keyPath)
	return nil
}

// confirmOverwrite asks twice before clobbering an existing valid cert/key
// pair — a deliberately higher bar than a single prompt, since overwriting
// invalidates every client that has the old certificate pinned.
func confirmOverwrite(certPath, keyPath string) (bool, error) {
	var first bool
	if err := survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("%s and %s already exist and are valid. Overwrite?", certPath, keyPath),
		Default: false,
	}, &first); err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}

	var second bool
	if err := survey.AskOne(&survey.Confirm{
		Message: "Every client with the current certificate pinned will be unable to connect until it updates. Really overwrite?",
		Default: false,
	}, &second); err != nil {
		return false, err
	}
	return second, nil
}

func resolveCertPaths(configDir string) (certPath, keyPath string, err error) {
	if configDir == "" {
		return certstore.Paths()
	}
	return filepath.Join(configDir, "pchmd.crt"), filepath.Join(configDir, "pchmd.key"), nil
}
