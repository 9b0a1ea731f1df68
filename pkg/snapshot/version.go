package snapshot

import "fmt"

// SchemaMajor, SchemaMinor and SchemaPatch are the version triple embedded
// in every encoded ComputerInfo message. They must always equal the
// running build's own semantic version; Version and the package init below
// enforce that at process start rather than at compile time, since Go has
// no const_assert.
const (
	SchemaMajor uint16 = 1
	SchemaMinor uint16 = 0
	SchemaPatch uint16 = 0
)

// BuildMajor, BuildMinor and BuildPatch identify the running binary's own
// semantic version. They default to the schema version and are overridden
// at link time with:
//
//	go build -ldflags "-X github.com/pchmd/pchmd/pkg/snapshot.buildMajor=1 ..."
//
// through the string-typed shadow variables below, since -X only accepts
// string values.
var (
	buildMajor = ""
	buildMinor = ""
	buildPatch = ""

	BuildMajor = SchemaMajor
	BuildMinor = SchemaMinor
	BuildPatch = SchemaPatch
)

// Version is the (major, minor, patch) triple carried by every snapshot.
type Version struct {
	Major, Minor, Patch uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// schemaVersion returns the compile-time schema version as a Version.
func schemaVersion() Version {
	return Version{Major: SchemaMajor, Minor: SchemaMinor, Patch: SchemaPatch}
}

// CurrentVersion returns the running build's schema version, for callers
// that just want to log or display it.
func CurrentVersion() Version {
	return buildVersion()
}

// buildVersion returns the running build's version, applying any -ldflags
// overrides parsed into BuildMajor/BuildMinor/BuildPatch during init.
func buildVersion() Version {
	return Version{Major: BuildMajor, Minor: BuildMinor, Patch: BuildPatch}
}

func init() {
	parseOverride(buildMajor, &BuildMajor)
	parseOverride(buildMinor, &BuildMinor)
	parseOverride(buildPatch, &BuildPatch)

	if schemaVersion() != buildVersion() {
		panic(fmt.Sprintf("snapshot: schema version %s does not match build version %s",
			schemaVersion(), buildVersion()))
	}
}

func parseOverride(raw string, dst *uint16) {
	if raw == "" {
		return
	}
	var v uint16
	if _, err := fmt.Sscanf(raw, "%d", &v); err == nil {
		*dst = v
	}
}
