package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/engine"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/timeutil"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the face-tracking engine and classify its output live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runLive(ctx, cancel, root.configPath, cmd)
		},
	}
}

func runLive(ctx context.Context, cancel context.CancelFunc, configPath string, cmd *cobra.Command) error {
	s, err := openSession(ctx, configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.close()
	log := s.log

	exe := s.cfg.Engine.Executable
	if exe == "" {
		exe, err = engine.Locate(s.cfg.Engine.SearchRoot)
		if err != nil {
			log.WithError(err).WithField("root", s.cfg.Engine.SearchRoot).Error("face-tracking engine not found")
			return err
		}
	}

	eng := engine.New(s.cfg.EngineConfig(exe), log)
	if err := eng.Start(); err != nil {
		log.WithError(err).Error("failed to start engine")
		return err
	}
	defer eng.Stop()

	out := eng.OutputPath()
	log.WithFields(logging.Fields{"exe": exe, "output": out}).Info("waiting for engine output")
	if err := engine.WaitForOutput(ctx, timeutil.RealClock{}, out, s.cfg.Engine.WaitInterval, s.cfg.Engine.StartTimeout); err != nil {
		log.WithError(err).Error("engine output never appeared")
		return err
	}

	tailer, err := capture.OpenTailer(out)
	if err != nil {
		return fmt.Errorf("follow engine output: %w", err)
	}
	defer tailer.Close()

	a := app.New(app.Config{
		Source:       tailer,
		Upstream:     eng,
		Stopper:      eng,
		Layout:       s.cfg.Layout(),
		Detector:     s.cfg.DetectorConfig(),
		PollInterval: s.cfg.Stream.PollInterval,
		Sink:         s.sink,
		Log:          log,
		Runs:         s.runRecorder(),
		Mode:         store.ModeLive,
		Variant:      s.cfg.Variant,
		SourceName:   out,
	})
	return s.serve(ctx, cancel, a)
}
