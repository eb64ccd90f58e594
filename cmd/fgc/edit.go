package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"thirdcoast.systems/fgcdesigner/pkg/fgc"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <cfg>",
		Short: "Print a summary of a config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0])
			if err != nil {
				return err
			}
			return fgc.Summary(cmd.OutOrStdout(), m)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var (
		bitDepth int
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "validate <cfg>",
		Short: "Check a config for structural and range errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0])
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			out := cmd.OutOrStdout()
			if err := m.CheckRanges(bitDepth); err != nil {
				if strict {
					return fmt.Errorf("out of range for %d-bit input: %w", bitDepth, err)
				}
				fmt.Fprintf(out, "warning: out of range for %d-bit input:\n%v\n", bitDepth, err)
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	cmd.Flags().IntVar(&bitDepth, "input-bitdepth", 10, "bit depth the range check assumes")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat range warnings as errors")
	return cmd
}

// intervalFlags are the flags shared by the commands editing one interval.
type intervalFlags struct {
	comp     string
	interval int
	output   string
}

func (f *intervalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.comp, "comp", "Y", "component (Y, Cb, Cr or 0..2)")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "interval index")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "output config path")
}

func newSplitCmd() *cobra.Command {
	var (
		f  intervalFlags
		at int
	)
	cmd := &cobra.Command{
		Use:   "split <cfg>",
		Short: "Split an interval at an intensity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0])
			if err != nil {
				return err
			}
			c, err := parseComponent(f.comp)
			if err != nil {
				return err
			}
			if !m.Split(c, f.interval, at) {
				return fmt.Errorf("cannot split %s interval %d at %d", fgc.ComponentName(c), f.interval, at)
			}
			return writeOutput(cmd, f.output, fgc.Marshal(m, false))
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&at, "at", 0, "first intensity of the upper half")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newEnableCmd() *cobra.Command {
	var (
		f   intervalFlags
		off bool
	)
	cmd := &cobra.Command{
		Use:   "enable <cfg>",
		Short: "Enable or disable an interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0])
			if err != nil {
				return err
			}
			c, err := parseComponent(f.comp)
			if err != nil {
				return err
			}
			if !m.SetEnabled(c, f.interval, !off) {
				return fmt.Errorf("no %s interval %d", fgc.ComponentName(c), f.interval)
			}
			return writeOutput(cmd, f.output, fgc.Marshal(m, false))
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&off, "off", false, "disable instead of enable")
	return cmd
}

func newMaskCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "mask <cfg>",
		Short: "Write the config with disabled intervals masked out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0])
			if err != nil {
				return err
			}
			if output == "" {
				return errors.New("an output path is required (-o, or - for stdout)")
			}
			return writeOutput(cmd, output, fgc.Marshal(m, true))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output config path")
	return cmd
}
