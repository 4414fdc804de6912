// Package build holds version information injected with -ldflags:
//
//	go build -ldflags "-X github.com/nadare881/rvc-webui/cmd/rvc/internal/build.Version=v0.3.0 \
//	  -X github.com/nadare881/rvc-webui/cmd/rvc/internal/build.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/nadare881/rvc-webui/cmd/rvc/internal/build.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package build

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the structured form of the build information.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// String returns a one-line version string.
func String() string {
	return fmt.Sprintf("rvc %s (%s) built %s %s/%s",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
