// Package version reports the hfiemu module version compiled into a binary.
package version

import "runtime/debug"

const modulePath = "github.com/tetratelabs/hfiemu"

// Default is returned when the build info carries no usable version, e.g. in
// tests or `go run`.
const Default = "dev"

// GetVersion returns the version of hfiemu in the binary's build info,
// whether hfiemu is the main module or a dependency of it.
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return versionOf(info)
}

func versionOf(info *debug.BuildInfo) string {
	if info.Main.Path == modulePath {
		return orDefault(info.Main.Version)
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return orDefault(dep.Version)
	}
	return Default
}

func orDefault(v string) string {
	if v == "" || v == "(devel)" {
		return Default
	}
	return v
}
