// Package sensor defines the host-independent vocabulary shared by every
// sensor backend and consumer: Key names a sub-sensor, Value carries its
// reading as a small tagged union (Float, RawBool, Text, and the
// wire-decode-only Bool), and Unit names the closed set of physical units a
// reading may be measured in.
//
// Concrete backends live in subpackages: pkg/sensor/hwmon walks Linux's
// sysfs hwmon tree, pkg/sensor/synthetic fabricates deterministic readings
// for tests. Both implement Source, the single contract the update loop in
// internal/daemon drives.
package sensor
