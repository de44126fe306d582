// Package version carries the build metadata of the devscripts binaries.
// The variables are set with -ldflags "-X" at release time.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag
	Version = "dev"
	// Commit is the git commit the binary was built from
	Commit = "unknown"
	// BuildDate is the build timestamp
	BuildDate = "unknown"
)

// Info describes one binary of the module.
type Info struct {
	Binary    string
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Platform  string
}

// Get returns the build information for the named binary.
func Get(binary string) Info {
	return Info{
		Binary:    binary,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String is the one-line form printed by "version --short".
func (i Info) String() string {
	return fmt.Sprintf("%s version %s", i.Binary, i.Version)
}

// Full adds commit, build date and toolchain to String.
func (i Info) Full() string {
	return fmt.Sprintf("%s (%s) built %s %s %s", i, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
