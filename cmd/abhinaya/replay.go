package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/store"
)

func newReplayCmd(root *rootOptions) *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Classify a recorded engine output file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runReplay(ctx, cancel, root.configPath, variant, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "override the detector variant ("+config.VariantPose+" or "+config.VariantExpression+")")
	return cmd
}

func runReplay(ctx context.Context, cancel context.CancelFunc, configPath, variant, path string, cmd *cobra.Command) error {
	s, err := openSession(ctx, configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.close()

	if variant != "" {
		if err := s.cfg.SetVariant(variant); err != nil {
			return err
		}
	}

	src, err := capture.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()

	a := app.New(app.Config{
		Source:       src,
		Upstream:     src,
		Stopper:      src,
		Layout:       s.cfg.Layout(),
		Detector:     s.cfg.DetectorConfig(),
		PollInterval: s.cfg.Stream.PollInterval,
		Sink:         s.sink,
		Log:          s.log,
		Runs:         s.runRecorder(),
		Mode:         store.ModeReplay,
		Variant:      s.cfg.Variant,
		SourceName:   path,
	})
	return s.serve(ctx, cancel, a)
}
