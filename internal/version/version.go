// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

//nolint:gochecknoglobals // Set at link time.
var (
	version = "0.3.0"
	commit  = "unknown"
)

// Contributors credited by the about command.
//
//nolint:gochecknoglobals // Read-only list.
var Contributors = []string{"youshou", "ysyunhei contributors"}

// GetVersion returns the raw version string.
func GetVersion() string {
	return version
}

// GetCommit returns the VCS revision the binary was built from.
func GetCommit() string {
	return commit
}

// Parse validates the build version as semver.
func Parse() (*semver.Version, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid build version %q: %w", version, err)
	}
	return v, nil
}

// Display renders the version as "v<major>.<minor>.<patch>[-pre]", or the
// raw value when it is not semver.
func Display() string {
	v, err := Parse()
	if err != nil {
		return version
	}
	return "v" + v.String()
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	return "ysyunhei/" + GetVersion()
}
