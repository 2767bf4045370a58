// Package build reports what binary is running. Release builds stamp it
// through -ldflags; everything else falls back to the VCS settings the Go
// toolchain embeds.
//
//	go build -ldflags "-X github.com/SatoshiAndKin/chandelier-or-not/build.Version=v1.2.0"
package build

import (
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DevVersion is reported when nothing stamped a version.
const DevVersion = "dev"

var (
	// Version is set with -ldflags -X.
	Version = DevVersion //nolint:gochecknoglobals

	// infoJSON optionally carries a full Info as JSON, set with -ldflags -X.
	infoJSON string //nolint:gochecknoglobals

	readOnce sync.Once //nolint:gochecknoglobals
	cached   Info      //nolint:gochecknoglobals
)

// Info contains build metadata.
type Info struct {
	Version      string            `json:"version"`
	GitCommit    string            `json:"git_commit"` //nolint:tagliatelle
	GitDate      string            `json:"git_date"`   //nolint:tagliatelle
	GitDirty     bool              `json:"git_dirty"`  //nolint:tagliatelle
	BuildTime    string            `json:"build_time"` //nolint:tagliatelle
	GoVersion    string            `json:"go_version"` //nolint:tagliatelle
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Parse deserializes a JSON string into build Info.
// Returns (nil, false) if the input is empty, "{}", or fails to parse.
func Parse(js string) (*Info, bool) {
	if len(js) == 0 || js == "{}" {
		return nil, false
	}

	var info Info

	if err := json.Unmarshal([]byte(js), &info); err != nil {
		slog.Warn("Failed to parse build info from JSON",
			"data", js,
			"error", err)

		return nil, false
	}

	return &info, true
}

// Read returns the build info of the running binary. The result is
// computed once.
func Read() Info {
	readOnce.Do(func() {
		cached = resolve(infoJSON, Version, debug.ReadBuildInfo)
	})

	return cached
}

func resolve(js, version string, read func() (*debug.BuildInfo, bool)) Info {
	var info Info

	if parsed, ok := Parse(js); ok {
		info = *parsed
	} else if bi, ok := read(); ok {
		info = fromBuildInfo(bi)
	}

	if info.Version == "" || version != DevVersion {
		info.Version = version
	}

	return info
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{
		GoVersion:    bi.GoVersion,
		Dependencies: make(map[string]string, len(bi.Deps)),
	}

	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.GitCommit = setting.Value
		case "vcs.time":
			info.GitDate = setting.Value
		case "vcs.modified":
			info.GitDirty = setting.Value == "true"
		}
	}

	for _, dep := range bi.Deps {
		info.Dependencies[dep.Path] = dep.Version
	}

	return info
}
