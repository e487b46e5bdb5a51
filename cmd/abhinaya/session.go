package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/events"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tray"
)

const statusRefresh = 500 * time.Millisecond

// session is everything around one App: configuration, logger, store and the
// event sinks. close releases them in reverse order.
type session struct {
	cfg *config.Config
	log *logrus.Logger

	store      *store.Store
	hub        *server.Hub
	tray       *tray.Tray
	dispatcher *plugin.Dispatcher
	sink       events.Sink

	closers []func()
}

func openSession(ctx context.Context, configPath string, out io.Writer) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log}
	if err := s.openStore(ctx); err != nil {
		s.close()
		return nil, err
	}
	if err := s.buildSinks(ctx, out); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) openStore(ctx context.Context) error {
	if s.cfg.Store.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(s.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = st
	s.closers = append(s.closers, func() { st.Close() })

	overrides, err := st.Settings().All(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if len(overrides) == 0 {
		return nil
	}
	if err := s.cfg.ApplySettings(overrides); err != nil {
		s.log.WithError(err).Warn("ignoring stored settings")
		return nil
	}
	s.log.WithField("settings", len(overrides)).Info("applied stored settings")
	return nil
}

// buildSinks fans every event out to the text stream and to whichever
// optional consumers are configured.
func (s *session) buildSinks(ctx context.Context, out io.Writer) error {
	sinks := events.Multi{events.NewWriter(out)}

	if s.cfg.Redis.Addr != "" {
		client, err := events.NewRedisClient(ctx, s.cfg.Redis.Addr, s.cfg.Redis.Password, s.cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, func() { client.Close() })
		sinks = append(sinks, events.NewRedisPublisher(client, s.cfg.Redis.Channel))
		s.log.WithField("channel", s.cfg.Redis.Channel).Info("publishing events to redis")
	}

	if s.cfg.Plugins.Dir != "" {
		if s.store == nil {
			return errors.New("plugins need store.path for action bindings")
		}
		mgr := plugin.NewManager(s.cfg.Plugins.Dir, s.log)
		if err := mgr.Discover(); err != nil {
			return fmt.Errorf("discover plugins: %w", err)
		}
		limiter := rate.NewLimiter(rate.Limit(s.cfg.Plugins.Rate), s.cfg.Plugins.Burst)
		s.dispatcher = plugin.NewDispatcher(s.store.Actions(), mgr, plugin.NewExecutor(s.cfg.Plugins.Timeout), limiter, s.log)
		sinks = append(sinks, s.dispatcher)
		s.log.WithField("plugins", len(mgr.List())).Info("plugin dispatch enabled")
	}

	if s.cfg.Server.Addr != "" {
		s.hub = server.NewHub(s.log)
		sinks = append(sinks, s.hub)
	}

	if s.cfg.Tray {
		s.tray = tray.New()
		sinks = append(sinks, s.tray)
	}

	s.sink = sinks
	return nil
}

func (s *session) runRecorder() app.RunRecorder {
	if s.store == nil {
		return nil
	}
	return s.store.Runs()
}

// serve runs the App, plus the HTTP server and tray when configured, until
// the App returns.
func (s *session) serve(ctx context.Context, cancel context.CancelFunc, a *app.App) error {
	if s.cfg.Server.Addr != "" {
		srv := server.New(server.Config{Store: s.store, App: a, Hub: s.hub, Log: s.log})
		srvCtx, stopServer := context.WithCancel(context.WithoutCancel(ctx))
		srvDone := make(chan struct{})
		go func() {
			defer close(srvDone)
			if err := srv.Run(srvCtx, s.cfg.Server.Addr); err != nil {
				s.log.WithError(err).Error("http server failed")
			}
		}()
		s.closers = append(s.closers, func() {
			stopServer()
			<-srvDone
		})
	}

	if s.tray == nil {
		return a.Run(ctx)
	}

	// The tray owns the main goroutine; the loop runs beside it.
	s.tray.OnToggle(a.SetEnabled)
	s.tray.TrackEnabled(a.IsEnabled)
	s.tray.OnQuit(cancel)

	runErr := make(chan error, 1)
	go func() {
		err := a.Run(ctx)
		s.tray.Quit()
		runErr <- err
	}()
	go s.refreshTray(ctx, a)

	s.tray.Run()
	cancel()
	return <-runErr
}

func (s *session) refreshTray(ctx context.Context, a *app.App) {
	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := a.Status()
			s.tray.SetExpression(st.Expression)
			s.tray.SetEnabled(st.Enabled)
		}
	}
}

func (s *session) close() {
	if s.dispatcher != nil {
		s.dispatcher.Wait()
		stats := s.dispatcher.Stats()
		s.log.WithFields(logging.Fields{
			"dispatched": stats.Dispatched,
			"throttled":  stats.Throttled,
			"failed":     stats.Failed,
		}).Info("plugin dispatch finished")
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
