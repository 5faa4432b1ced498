package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tetratelabs/hfiemu"
	"github.com/tetratelabs/hfiemu/internal/features"
)

type probeOptions struct {
	metrics   bool
	conflicts bool
}

func newProbeCmd(newLogger func() *logrus.Logger) *cobra.Command {
	opts := &probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Reserve the low 4GiB, audit it and release it",
		Long: "probe performs the same reservation as a test binary built with the hfi_emulation " +
			"tag. On failure it exits with code 70 and names the mappings in the way.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd.OutOrStdout(), newLogger(), opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.metrics, "metrics", false, "print Prometheus metrics after probing")
	flags.BoolVar(&opts.conflicts, "conflicts", true, "name the mappings occupying the region on failure")
	return cmd
}

func runProbe(out io.Writer, logger logrus.FieldLogger, opts *probeOptions) error {
	reg := prometheus.NewRegistry()
	config := hfiemu.NewConfig().WithLogger(logger).WithConflictReport(opts.conflicts)
	if opts.metrics {
		config = config.WithMetrics(reg)
	}
	e, err := hfiemu.New(config)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, featureLine(features.List()))
	if err = e.Initialize(); err != nil {
		return &exitError{code: hfiemu.ExitCodeReservationFailed, err: err}
	}
	region, err := e.Region()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reserved %s\n", region)
	if region.Mapped() {
		fmt.Fprintf(out, "mapped [%#x, %#x) no-access\n", region.MapStart, region.End)
	} else {
		fmt.Fprintln(out, "guarded by the platform, nothing mapped")
	}

	auditErr := e.Audit()
	if auditErr == nil {
		fmt.Fprintln(out, "audit: ok")
	} else {
		fmt.Fprintf(out, "audit: %v\n", auditErr)
	}

	for _, addr := range sampleAddresses(region) {
		fmt.Fprintf(out, "%#x\t%s\n", addr, e.Classify(addr))
	}

	if opts.metrics {
		if err = writeMetrics(out, reg); err != nil {
			return err
		}
	}

	return errors.Join(auditErr, e.Release())
}

// sampleAddresses returns the region edges and the first address past it.
func sampleAddresses(region hfiemu.Region) []uintptr {
	addrs := []uintptr{uintptr(region.Start)}
	if region.Mapped() && region.MapStart != region.Start {
		addrs = append(addrs, uintptr(region.MapStart))
	}
	return append(addrs, uintptr(region.End-1), uintptr(region.End))
}

func writeMetrics(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err = expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}

func featureLine(enabled []string) string {
	if len(enabled) == 0 {
		return "features: none"
	}
	return "features: " + strings.Join(enabled, ",")
}
