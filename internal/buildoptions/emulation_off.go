//go:build !hfi_emulation

package buildoptions

// EmulationEnabled is true when the binary was built with the "hfi_emulation"
// tag. Without it, sandboxed code relies on hardware fault isolation and the
// low 4GiB reservation is never made.
const EmulationEnabled = false
