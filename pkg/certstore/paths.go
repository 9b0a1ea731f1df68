package certstore

import "github.com/adrg/xdg"

// certFileName and keyFileName are the fixed basenames used under the
// platform user-config directory.
const (
	certFileName = "pchmd.crt"
	keyFileName  = "pchmd.key"
)

// Paths resolves the certificate and private key file paths under the
// platform's per-user config directory (github.com/adrg/xdg resolves the
// OS-appropriate location — XDG_CONFIG_HOME on Linux, Application Support
// on macOS, AppData on Windows). The parent directory is created if it
// does not already exist.
func Paths() (certPath, keyPath string, err error) {
	certPath, err = xdg.ConfigFile("pchmd/" + certFileName)
	if err != nil {
		return "", "", err
	}
	keyPath, err = xdg.ConfigFile("pchmd/" + keyFileName)
	if err != nil {
		return "", "", err
	}
	return certPath, keyPath, nil
}
