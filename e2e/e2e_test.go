package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/events"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
)

const recording = "../testdata/pose_session.csv"

// writeRecorderPlugin installs a plugin that appends every request to log.
func writeRecorderPlugin(t *testing.T, dir, log string) {
	t.Helper()

	pluginDir := filepath.Join(dir, "recorder")
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := `{"name": "recorder", "version": "1.0.0", "executable": "recorder.sh", "actions": ["log"]}`
	if err := os.WriteFile(filepath.Join(pluginDir, plugin.ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	script := "#!/bin/sh\ncat >> '" + log + "'\necho >> '" + log + "'\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "recorder.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func TestE2E_ReplayWithActions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell plugin needs a POSIX shell")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	cfg := config.Default()
	if err := cfg.SetVariant(config.VariantPose); err != nil {
		t.Fatalf("SetVariant() error = %v", err)
	}

	src, err := capture.OpenFile(recording)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer src.Close()

	pluginLog := filepath.Join(tmpDir, "actions.jsonl")
	writeRecorderPlugin(t, filepath.Join(tmpDir, "plugins"), pluginLog)
	mgr := plugin.NewManager(filepath.Join(tmpDir, "plugins"), nil)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	dispatcher := plugin.NewDispatcher(s.Actions(), mgr, plugin.NewExecutor(5*time.Second), nil, nil)

	hub := server.NewHub(nil)
	var out bytes.Buffer
	application := app.New(app.Config{
		Source:     src,
		Upstream:   src,
		Stopper:    src,
		Layout:     cfg.Layout(),
		Detector:   cfg.DetectorConfig(),
		Sink:       events.Multi{events.NewWriter(&out), dispatcher, hub},
		Runs:       s.Runs(),
		Mode:       store.ModeReplay,
		Variant:    cfg.Variant,
		SourceName: recording,
	})

	srv := server.New(server.Config{Store: s, App: application, Hub: hub})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	t.Run("BindAction", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/actions",
			"application/json",
			strings.NewReader(`{"label": "Indian Nod", "plugin_name": "recorder", "action_name": "log"}`),
		)
		if err != nil {
			t.Fatalf("create action error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	t.Run("Replay", func(t *testing.T) {
		if err := application.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		dispatcher.Wait()

		want := "No\nYes\nIndian Nod\nProgram ended\n"
		if out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
	})

	t.Run("EventsStreamed", func(t *testing.T) {
		var labels []string
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for len(labels) < 4 {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("read event %d: %v", len(labels), err)
			}
			var ev gesture.Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			labels = append(labels, ev.Label)
		}
		want := []string{gesture.LabelNo, gesture.LabelYes, gesture.LabelIndianNod, gesture.LabelEnded}
		if strings.Join(labels, ",") != strings.Join(want, ",") {
			t.Errorf("streamed labels = %v, want %v", labels, want)
		}
	})

	t.Run("ActionRan", func(t *testing.T) {
		f, err := os.Open(pluginLog)
		if err != nil {
			t.Fatalf("open plugin log: %v", err)
		}
		defer f.Close()

		var reqs []plugin.Request
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == "" {
				continue
			}
			var req plugin.Request
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			reqs = append(reqs, req)
		}
		if len(reqs) != 1 {
			t.Fatalf("plugin ran %d times, want 1", len(reqs))
		}
		if reqs[0].Event != gesture.LabelIndianNod || reqs[0].Action != "log" || reqs[0].Timestamp != 2.25 {
			t.Errorf("request = %+v", reqs[0])
		}
		if stats := dispatcher.Stats(); stats.Dispatched != 1 || stats.Failed != 0 {
			t.Errorf("dispatch stats = %+v", stats)
		}
	})

	t.Run("StatusAndRuns", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/status")
		if err != nil {
			t.Fatalf("GET /api/status error = %v", err)
		}
		var st app.Status
		json.NewDecoder(resp.Body).Decode(&st)
		resp.Body.Close()

		if st.Running || st.Lines != 11 || st.Skipped != 1 || st.Detector.Frames != 10 {
			t.Errorf("status = %+v", st)
		}

		resp, err = client.Get(ts.URL + "/api/runs")
		if err != nil {
			t.Fatalf("GET /api/runs error = %v", err)
		}
		var listed struct {
			Runs []store.Run `json:"runs"`
		}
		json.NewDecoder(resp.Body).Decode(&listed)
		resp.Body.Close()

		if len(listed.Runs) != 1 {
			t.Fatalf("got %d runs, want 1", len(listed.Runs))
		}
		run := listed.Runs[0]
		if run.Events != 3 || run.Frames != 10 || run.EndedAt == nil || run.Variant != config.VariantPose {
			t.Errorf("run = %+v", run)
		}
	})
}

func TestE2E_MutedDeliveryKeepsClassifying(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	if err := cfg.SetVariant(config.VariantPose); err != nil {
		t.Fatalf("SetVariant() error = %v", err)
	}

	src, err := capture.OpenFile(recording)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer src.Close()

	var out bytes.Buffer
	application := app.New(app.Config{
		Source:   src,
		Upstream: src,
		Layout:   cfg.Layout(),
		Detector: cfg.DetectorConfig(),
		Sink:     events.NewWriter(&out),
	})

	ts := httptest.NewServer(server.New(server.Config{App: application}))
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/status", strings.NewReader(`{"enabled": false}`))
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT /api/status error = %v", err)
	}
	resp.Body.Close()

	if err := application.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if out.String() != "Program ended\n" {
		t.Errorf("output = %q, want only the terminal line", out.String())
	}
	if got := application.Status().Detector.Events; got != 3 {
		t.Errorf("events = %d, want 3", got)
	}
}
