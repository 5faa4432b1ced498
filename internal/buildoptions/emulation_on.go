//go:build hfi_emulation

package buildoptions

// EmulationEnabled is true when the binary was built with the "hfi_emulation"
// tag. See emulation_off.go
const EmulationEnabled = true
