// Package features reads the hfiemu feature flags from the HFIEMUFEATURES
// environment variable.
//
// Flags control behavior that can only be chosen for the whole process, so
// they are read once at startup.
package features

import (
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

const (
	// EnvVarName is the comma separated list of enabled flags.
	EnvVarName = "HFIEMUFEATURES"

	// ProcMaps enables reading the process mapping table to name what
	// occupies the low 4GiB when a reservation fails.
	ProcMaps = "procmaps"
)

// known is every flag hfiemu understands.
var known = []string{ProcMaps}

var enabled atomic.Pointer[[]string]

func init() {
	loadEnvironment()
}

func loadEnvironment() {
	enabled.Store(parse(os.Getenv(EnvVarName)))
}

// parse keeps the known flags in value, in order and without repeats.
func parse(value string) *[]string {
	var flags []string
	for _, f := range strings.Split(value, ",") {
		f = strings.TrimSpace(f)
		if slices.Contains(known, f) && !slices.Contains(flags, f) {
			flags = append(flags, f)
		}
	}
	return &flags
}

// List returns the enabled flags. The caller must not modify the result.
func List() []string {
	return *enabled.Load()
}

// Have returns true if the given flag is enabled.
func Have(feature string) bool {
	return slices.Contains(List(), feature)
}
