package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/tetratelabs/hfiemu/internal/platform"
	"github.com/tetratelabs/hfiemu/internal/reservation"
)

func newMapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maps",
		Short: "List mappings that intersect the low 4GiB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMaps(cmd.OutOrStdout(), platform.Host{})
		},
	}
}

func runMaps(out io.Writer, space reservation.AddressSpace) error {
	maps, err := space.Mappings()
	if errors.Is(err, platform.ErrNoMappingTable) {
		fmt.Fprintln(out, "no mapping table on this platform")
		return nil
	} else if err != nil {
		return err
	}

	low := platform.Overlapping(maps, 0, lowEnd(space.PointerBits()))
	if len(low) == 0 {
		fmt.Fprintf(out, "the low 4GiB is free above %#x\n", space.MinAddress())
		return nil
	}
	for _, m := range low {
		fmt.Fprintf(out, "%s\t%s\n", m, units.BytesSize(float64(m.End-m.Start)))
	}
	return nil
}

// lowEnd returns the exclusive end of the low 4GiB, which is the whole
// address space when pointers are narrower than 64 bits.
func lowEnd(pointerBits int) uintptr {
	if pointerBits < 64 {
		return ^uintptr(0)
	}
	end := uint64(reservation.Lower4GiB)
	return uintptr(end)
}
