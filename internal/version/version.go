// Package version reports how the ora binaries were built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/r9s-ai/open-resource-api/pkg/negotiate"
)

// Build metadata, stamped with
//
//	-ldflags "-X github.com/r9s-ai/open-resource-api/internal/version.Version=v1.2.3"
//
// and the same for Commit and BuildDate (RFC3339).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	MediaType string `json:"media_type"`
}

// Get collects the build metadata. An unstamped commit falls back to the
// VCS revision the toolchain recorded, when there is one.
func Get() Info {
	commit := Commit
	if commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			commit = rev
		}
	}
	return Info{
		Version:   Version,
		Commit:    commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		MediaType: negotiate.APIMediaType,
	}
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "open-resource-api %s\n", i.Version)
	for _, kv := range [][2]string{
		{"commit", i.Commit},
		{"built", i.BuildDate},
		{"go", i.GoVersion},
		{"platform", i.Platform},
		{"serves", i.MediaType},
	} {
		fmt.Fprintf(&b, "  %-9s %s\n", kv[0]+":", kv[1])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Short is the version plus a seven character commit, as reported by the
// health endpoint.
func Short() string {
	if Commit == "unknown" || len(Commit) <= 7 {
		return Version
	}
	return Version + " (" + Commit[:7] + ")"
}
