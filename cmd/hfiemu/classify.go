package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tetratelabs/hfiemu/internal/fault"
	"github.com/tetratelabs/hfiemu/internal/platform"
	"github.com/tetratelabs/hfiemu/internal/reservation"
)

func newClassifyCmd() *cobra.Command {
	state := reservation.Reserved
	cmd := &cobra.Command{
		Use:   "classify ADDR...",
		Short: "Show how a fault at each address would be classified",
		Long: "classify prints the classification of a fault at each address, in the given " +
			"reservation state. Nothing is reserved.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]uintptr, 0, len(args))
			for _, arg := range args {
				addr, err := strconv.ParseUint(arg, 0, platform.PointerBits)
				if err != nil {
					return fmt.Errorf("invalid address %q: %w", arg, err)
				}
				addrs = append(addrs, uintptr(addr))
			}

			region := reservation.Region{Start: 0, End: reservation.Lower4GiB, MapStart: uint64(platform.MinAddress())}
			out := cmd.OutOrStdout()
			for _, addr := range addrs {
				fmt.Fprintf(out, "%#x\t%s\n", addr, fault.ClassifyIn(state, region, addr))
			}
			return nil
		},
	}
	cmd.Flags().Var(&stateValue{state: &state}, "state", "reservation state: unreserved, reserved or released")
	return cmd
}
