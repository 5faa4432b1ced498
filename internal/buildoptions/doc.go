// Package buildoptions holds constants selected by build tags.
//
// Build a test binary with software HFI emulation like this:
//
//	go test -tags hfi_emulation -buildmode=pie ./...
//
// A linux executable that isn't position independent is loaded at 0x400000,
// inside the region the emulation reserves.
package buildoptions
