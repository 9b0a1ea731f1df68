package snapshot

import (
	"encoding/binary"
	"log/slog"
	"net"

	"github.com/google/uuid"
)

// pchmdNamespace is a fixed namespace UUID used to derive a host UUID from
// its primary MAC address via uuid.NewSHA1, the same construction
// uuid.NewSHA1 documents for DNS/URL namespaced UUIDs (RFC 4122 §4.3): same
// MAC in, same UUID out, every time.
var pchmdNamespace = uuid.MustParse("6c9d6a2e-6d8b-4b7e-9f9a-2a7f7a9d6e10")

// primaryMAC returns the hardware address of the first interface that has
// one, skipping loopback and interfaces with an all-zero address. Returns
// nil if no such interface is found.
func primaryMAC() net.HardwareAddr {
	ifaces, err := net.Interfaces()
	if err != nil {
		slog.Warn("snapshot: failed to enumerate network interfaces", "error", err)
		return nil
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 || isZeroMAC(iface.HardwareAddr) {
			continue
		}
		return iface.HardwareAddr
	}
	return nil
}

func isZeroMAC(mac net.HardwareAddr) bool {
	for _, b := range mac {
		if b != 0 {
			return false
		}
	}
	return true
}

// fallbackUUID is used when MAC lookup fails; acceptable per design notes
// as long as the fallback is logged.
var fallbackUUID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// deriveUUID returns a deterministic 128-bit UUID for the host, split into
// its upper and lower 64-bit halves for the wire. Identical MAC addresses
// always yield identical halves.
func deriveUUID() (upper, lower uint64) {
	mac := primaryMAC()
	var id uuid.UUID
	if mac == nil {
		slog.Warn("snapshot: no usable MAC address found, falling back to fixed host UUID")
		id = fallbackUUID
	} else {
		id = uuid.NewSHA1(pchmdNamespace, mac)
	}
	upper = binary.BigEndian.Uint64(id[0:8])
	lower = binary.BigEndian.Uint64(id[8:16])
	return upper, lower
}
