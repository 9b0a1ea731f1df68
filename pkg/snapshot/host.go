package snapshot

import (
	"log/slog"
	"os"
	"runtime"
)

// Hostname returns the OS-reported host name, falling back to "unknown"
// and logging if the lookup fails.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		slog.Warn("snapshot: failed to resolve hostname", "error", err)
		return "unknown"
	}
	return name
}

// OperatingSystem returns the compile-time GOOS identifier, the value the
// schema's operating_system field carries.
func OperatingSystem() string {
	return runtime.GOOS
}
