package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	doMain(os.Args[1:], os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	cmd := newRootCmd(stdOut, stdErr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stdErr, "Error: %v\n", err)
		var eerr *exitError
		if errors.As(err, &eerr) {
			exit(eerr.code)
			return
		}
		exit(1)
		return
	}
	exit(0)
}

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func newRootCmd(stdOut, stdErr io.Writer) *cobra.Command {
	level := logrus.InfoLevel
	cmd := &cobra.Command{
		Use:   "hfiemu",
		Short: "Inspect HFI emulation on this host",
		Long: "hfiemu checks whether the lower 4GiB of the address space can be reserved " +
			"for HFI emulation, and explains how memory faults would be classified.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdOut)
	cmd.SetErr(stdErr)
	cmd.PersistentFlags().Var(&levelValue{level: &level}, "log-level", "log level: debug, info, warn or error")

	newLogger := func() *logrus.Logger {
		logger := logrus.New()
		logger.SetOutput(stdErr)
		logger.SetLevel(level)
		return logger
	}

	cmd.AddCommand(
		newProbeCmd(newLogger),
		newMapsCmd(),
		newClassifyCmd(),
		newVersionCmd(),
	)
	return cmd
}
