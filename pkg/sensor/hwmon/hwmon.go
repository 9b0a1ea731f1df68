//go:build linux

// Package hwmon walks Linux's /sys/class/hwmon tree, the kernel's standard
// interface for exposing voltage, temperature, fan, power, current and
// energy readings from onboard sensor chips. The discovery walk and
// attribute-glob conventions (temp\d+_input, in\d+_input, fan\d+_input, ...)
// mirror a real BMC telemetry daemon's sysfs walker, adapted here to feed
// pkg/aggregate instead of a NATS-published sensor catalog.
package hwmon

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pchmd/pchmd/pkg/sensor"
)

// DefaultRoot is the standard sysfs location for hwmon devices.
const DefaultRoot = "/sys/class/hwmon"

// category describes one family of hwmon attributes: the pattern its _input
// files match, the feature prefix used in sensor names, and the
// MeasurementUnit to attach.
type category struct {
	inputPattern *regexp.Regexp
	feature      string
	unit         sensor.Unit
}

var categories = []category{
	{regexp.MustCompile(`^temp(\d+)_input$`), "temp", sensor.UnitCelsius},
	{regexp.MustCompile(`^in(\d+)_input$`), "in", sensor.UnitVolt},
	{regexp.MustCompile(`^fan(\d+)_input$`), "fan", sensor.UnitRPM},
	{regexp.MustCompile(`^power(\d+)_input$`), "power", sensor.UnitWatt},
	{regexp.MustCompile(`^curr(\d+)_input$`), "curr", sensor.UnitAmp},
	{regexp.MustCompile(`^energy(\d+)_input$`), "energy", sensor.UnitJoule},
}

var boolSuffixes = []string{"_alarm", "_fault", "_beep", "_intrusion"}

var typeSuffix = regexp.MustCompile(`^temp(\d+)_type$`)

// Source implements sensor.Source by walking DefaultRoot (or an overridden
// Root) once per Update call. Sub-sensor read failures are logged and
// skipped; they never abort the pass.
type Source struct {
	Root   string
	Logger *slog.Logger
}

// New constructs a Source rooted at DefaultRoot.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{Root: DefaultRoot, Logger: logger}
}

func (s *Source) Name() string { return "hwmon" }

// Update enumerates every hwmon device directory under Root and, for each,
// every recognized attribute file, depositing one Reading per sub-sensor
// into dst.
func (s *Source) Update(ctx context.Context, dst sensor.Merger) {
	root := s.Root
	if root == "" {
		root = DefaultRoot
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	devices, err := listDevices(root)
	if err != nil {
		s.Logger.Warn("hwmon: failed to list devices", "root", root, "error", err)
		return
	}

	for _, dir := range devices {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.scanDevice(dst, dir)
	}
}

func listDevices(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		out = append(out, filepath.Join(root, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Source) scanDevice(dst sensor.Merger, devicePath string) {
	chip, err := readTrimmed(filepath.Join(devicePath, "name"))
	if err != nil {
		s.Logger.Warn("hwmon: device has no name attribute, skipping", "path", devicePath, "error", err)
		return
	}

	files, err := os.ReadDir(devicePath)
	if err != nil {
		s.Logger.Warn("hwmon: failed to read device directory", "path", devicePath, "error", err)
		return
	}

	bus := busIdentifier(devicePath)
	names := make(map[string]struct{}, len(files))
	for _, f := range files {
		names[f.Name()] = struct{}{}
	}

	for name := range names {
		s.scanNumericInput(dst, devicePath, chip, bus, name, names)
		s.scanBoolAttribute(dst, devicePath, chip, bus, name)
		s.scanTypeAttribute(dst, devicePath, chip, bus, name)
	}
}

func (s *Source) scanNumericInput(dst sensor.Merger, devicePath, chip, bus, name string, siblings map[string]struct{}) {
	for _, cat := range categories {
		m := cat.inputPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		idx := m[1]
		raw, err := readTrimmed(filepath.Join(devicePath, name))
		if err != nil {
			s.Logger.Warn("hwmon: failed to read sub-sensor", "device", chip, "attribute", name, "error", err)
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.Logger.Warn("hwmon: non-numeric value for sub-sensor", "device", chip, "attribute", name, "value", raw)
			return
		}

		feature := cat.feature + idx
		label := featureLabel(devicePath, feature, siblings)
		key := buildKey(name, feature, label, chip, bus, devicePath, "hwmon")

		dst.Merge(key, sensor.Float64(scaleReading(cat.feature, v)), cat.unit)
		return
	}
}

func (s *Source) scanBoolAttribute(dst sensor.Merger, devicePath, chip, bus, name string) {
	for _, suffix := range boolSuffixes {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		raw, err := readTrimmed(filepath.Join(devicePath, name))
		if err != nil {
			s.Logger.Warn("hwmon: failed to read sub-sensor", "device", chip, "attribute", name, "error", err)
			return
		}
		on := raw == "1"
		feature := strings.TrimSuffix(name, suffix)
		key := buildKey(name, feature, "", chip, bus, devicePath, "hwmon")
		dst.Merge(key, sensor.RawBool(on), sensor.UnitNone)
		return
	}
}

func (s *Source) scanTypeAttribute(dst sensor.Merger, devicePath, chip, bus, name string) {
	m := typeSuffix.FindStringSubmatch(name)
	if m == nil {
		return
	}
	raw, err := readTrimmed(filepath.Join(devicePath, name))
	if err != nil {
		s.Logger.Warn("hwmon: failed to read sub-sensor", "device", chip, "attribute", name, "error", err)
		return
	}
	feature := "temp" + m[1]
	key := buildKey(name, feature, "", chip, bus, devicePath, "hwmon")
	dst.Merge(key, sensor.TextValue(temperatureTypeName(raw)), sensor.UnitNone)
}

// scaleReading converts a few sysfs fixed-point conventions (millidegree
// Celsius, millivolts, microwatts, millamps, microjoules) down to the
// human-scale units the category's MeasurementUnit names.
func scaleReading(feature string, raw float64) float64 {
	switch feature {
	case "temp", "in", "curr":
		return raw / 1000.0
	case "power", "energy":
		return raw / 1_000_000.0
	default:
		return raw
	}
}

// featureLabel resolves the optional human-readable label sibling file
// (e.g. temp1_label) for a feature; returns "" when absent, which the name
// builder treats as "feature_name omitted".
func featureLabel(devicePath, feature string, siblings map[string]struct{}) string {
	labelFile := feature + "_label"
	if _, ok := siblings[labelFile]; !ok {
		return ""
	}
	label, err := readTrimmed(filepath.Join(devicePath, labelFile))
	if err != nil {
		return ""
	}
	return label
}

// buildKey constructs the sensor.Key and, more importantly, the stable
// human-readable sensor name, formatted verbatim as:
//
//	"{subfeature} from {feature}[{feature_name}] on {chip} at ({bus} [{path}])"
//
// with [feature_name] omitted when unavailable. hwmon always resolves a
// backing path, so the [path] clause is always present for this source and
// buildKey has no form that omits it.
func buildKey(subfeature, feature, featureName, chip, bus, path, dataSource string) sensor.Key {
	name := subfeature + " from " + feature
	if featureName != "" {
		name += "[" + featureName + "]"
	}
	name += " on " + chip + " at (" + bus
	name += " [" + path + "])"
	return sensor.Key{SensorName: name, DataSourceName: dataSource}
}

// busIdentifier derives a bus identifier from the device symlink's target
// basename (hwmon devices are usually linked to something like
// ".../i2c-1/1-0048/hwmon/hwmon3", whose parent directory names the bus and
// address). Falls back to the hwmon node's own basename if the link cannot
// be resolved.
func busIdentifier(devicePath string) string {
	resolved, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		return filepath.Base(devicePath)
	}
	parent := filepath.Base(filepath.Dir(filepath.Dir(resolved)))
	if parent == "" || parent == "." {
		return filepath.Base(devicePath)
	}
	return parent
}

func readTrimmed(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return "", fmt.Errorf("hwmon: empty attribute file %s", path)
	}
	return strings.TrimSpace(sc.Text()), sc.Err()
}

// temperatureTypeName maps the numeric temp*_type codes the kernel exposes
// to their conventional names (see Documentation/hwmon/sysfs-interface).
func temperatureTypeName(code string) string {
	switch code {
	case "1":
		return "CPU diode"
	case "2":
		return "3904 transistor"
	case "3":
		return "thermal diode"
	case "4":
		return "thermistor"
	case "5":
		return "AMD AMDSI"
	case "6":
		return "Intel PECI"
	default:
		return "unknown (" + code + ")"
	}
}
