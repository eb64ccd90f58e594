package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"thirdcoast.systems/fgcdesigner/internal/config"
	"thirdcoast.systems/fgcdesigner/pkg/fgc"
	"thirdcoast.systems/fgcdesigner/pkg/vfgs"
	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

func encodingFor(path string) (yuv.Encoding, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", "":
		return yuv.EncodingPNG, nil
	case ".webp":
		return yuv.EncodingWebP, nil
	}
	return "", fmt.Errorf("unsupported image type %q (want .png or .webp)", filepath.Ext(path))
}

func newRenderCmd() *cobra.Command {
	var (
		output string
		gain   int
		width  int
	)
	cmd := &cobra.Command{
		Use:   "render <cfg>",
		Short: "Synthesize grain on one source frame and write it as an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0])
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			enc, err := encodingFor(output)
			if err != nil {
				return err
			}
			if output == "-" && isTerminal(cmd.OutOrStdout()) {
				return errors.New("refusing to write image data to a terminal")
			}

			conf, err := config.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if conf.SourcePath == "" {
				return errors.New("a source video is required (--source or SOURCE_PATH)")
			}
			layout := conf.Layout()
			count, err := yuv.FrameCount(conf.SourcePath, layout)
			if err != nil {
				return err
			}
			if conf.FrameIndex >= count {
				return fmt.Errorf("frame %d out of range, %s has %d frames", conf.FrameIndex, conf.SourcePath, count)
			}
			if !cmd.Flags().Changed("gain") {
				gain = m.GlobalGain
			}
			if gain < 0 {
				return fmt.Errorf("gain %d must not be negative", gain)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), conf.PreviewTimeout())
			defer cancel()

			synth := &vfgs.Synthesizer{Binary: conf.SynthBinary, WorkDir: conf.WorkDir, Logger: slog.Default()}
			start := time.Now()
			frame, err := synth.Synthesize(ctx, fgc.Marshal(m, true), vfgs.Params{
				Source: conf.SourcePath,
				Layout: layout,
				Frame:  conf.FrameIndex,
				Seed:   conf.GrainSeed,
				Gain:   gain,
			})
			if err != nil {
				return err
			}
			img, err := yuv.ToImage(frame)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := yuv.EncodeImage(&buf, yuv.Scale(img, width), enc); err != nil {
				return err
			}
			slog.Info("rendered preview",
				"frame", conf.FrameIndex,
				"seed", conf.GrainSeed,
				"gain", gain,
				"elapsed", time.Since(start),
				"size", humanize.Bytes(uint64(buf.Len())),
			)
			return writeOutput(cmd, output, buf.Bytes())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output image (.png or .webp, - for PNG on stdout)")
	f.IntVar(&gain, "gain", 100, "global gain percentage (defaults to the config's)")
	f.IntVar(&width, "scale", 0, "scale the image to this width (0 keeps the source size)")
	f.String("source", "", "raw source video (SOURCE_PATH)")
	f.Int("frame", 0, "source frame index (FRAME_INDEX)")
	f.Uint32("seed", 0, "grain seed (GRAIN_SEED)")
	_ = viper.BindPFlag("SOURCE_PATH", f.Lookup("source"))
	_ = viper.BindPFlag("FRAME_INDEX", f.Lookup("frame"))
	_ = viper.BindPFlag("GRAIN_SEED", f.Lookup("seed"))
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <yuv>",
		Short: "Report the frame count and sizes of a raw video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			layout := conf.Layout()
			if err := layout.Validate(); err != nil {
				return err
			}
			st, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			count, err := yuv.FrameCount(args[0], layout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %s\n", "file", args[0])
			fmt.Fprintf(out, "%-12s %dx%d %d-bit %s\n", "layout", layout.Width, layout.Height, layout.BitDepth, layout.Format)
			fmt.Fprintf(out, "%-12s %s\n", "frame size", humanize.Bytes(uint64(layout.FrameBytes())))
			fmt.Fprintf(out, "%-12s %s\n", "file size", humanize.Bytes(uint64(st.Size())))
			fmt.Fprintf(out, "%-12s %s\n", "frames", humanize.Comma(int64(count)))
			if rest := st.Size() - int64(count)*layout.FrameBytes(); rest != 0 {
				fmt.Fprintf(out, "%-12s %s\n", "trailing", humanize.Bytes(uint64(rest)))
			}
			return nil
		},
	}
}
