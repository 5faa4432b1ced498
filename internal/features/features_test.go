package features

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// restore puts the flags back as they were when the test finishes.
func restore(t *testing.T) {
	old := enabled.Load()
	t.Cleanup(func() { enabled.Store(old) })
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "empty"},
		{name: "unknown", value: "hugepages,nope"},
		{name: "known", value: "procmaps", expected: []string{ProcMaps}},
		{name: "repeated", value: "procmaps,procmaps", expected: []string{ProcMaps}},
		{name: "mixed with spaces", value: " hugepages , procmaps,", expected: []string{ProcMaps}},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, *parse(tc.value))
		})
	}
}

func TestLoadEnvironment(t *testing.T) {
	restore(t)

	t.Setenv(EnvVarName, "")
	loadEnvironment()
	require.Empty(t, List())
	require.False(t, Have(ProcMaps))

	t.Setenv(EnvVarName, "hugepages,procmaps")
	loadEnvironment()
	require.Equal(t, []string{ProcMaps}, List())
	require.True(t, Have(ProcMaps))
	require.False(t, Have("hugepages"))
}

func TestHaveAllocs(t *testing.T) {
	restore(t)
	enabled.Store(parse(ProcMaps))

	require.Equal(t, 0.0, testing.AllocsPerRun(100, func() {
		Have(ProcMaps)
	}))
}
