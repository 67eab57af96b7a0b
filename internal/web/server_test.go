package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/status"
)

func newTestServer(t *testing.T, mode string) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Mode:        mode,
		SampleMs:    5,
		Threshold:   5,
		Polarity:    "active-low",
		BlinkMs:     500,
		HeartbeatMs: 900000,
		Broker:      "tcp://localhost:1883",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) (int, http.Header, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, "button")
	tr.Update(logic.ButtonPressed, logic.LedOn, logic.PressCounter{Presses: 5, Releases: 4})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Button != "PRESSED" {
		t.Errorf("Button: got %q, want PRESSED", sj.Status.Button)
	}
	if sj.Status.LED != "ON" {
		t.Errorf("LED: got %q, want ON", sj.Status.LED)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Presses != 5 || sj.Status.Counts.Releases != 4 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Config.SampleMs != 5 {
		t.Errorf("Config.SampleMs: got %d, want 5", sj.Status.Config.SampleMs)
	}
}

func TestJSONUnknownStateBeforeFirstTick(t *testing.T) {
	ts, _ := newTestServer(t, "button")

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Button != "UNKNOWN" || sj.Status.LED != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %q/%q", sj.Status.Button, sj.Status.LED)
	}
}

func TestJSONReflectsUpdates(t *testing.T) {
	ts, tr := newTestServer(t, "button")

	tr.Update(logic.ButtonReleased, logic.LedOff, logic.PressCounter{})
	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.LED != "OFF" {
		t.Errorf("LED: got %q, want OFF", sj.Status.LED)
	}

	tr.Update(logic.ButtonPressed, logic.LedOn, logic.PressCounter{Presses: 1})
	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.LED != "ON" || sj.Status.Counts.Presses != 1 {
		t.Errorf("after press: got LED=%q presses=%d", sj.Status.LED, sj.Status.Counts.Presses)
	}
}

func TestHTMLEndpoints(t *testing.T) {
	ts, tr := newTestServer(t, "button")
	tr.Update(logic.ButtonPressed, logic.LedOn, logic.PressCounter{Presses: 2})
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	for _, path := range []string{"/", "/index.html"} {
		code, hdr, body := getBody(t, ts.URL+path)
		if code != 200 {
			t.Errorf("%s: status got %d, want 200", path, code)
		}
		if ct := hdr.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type got %q", path, ct)
		}
		if hdr.Get("Cache-Control") == "" {
			t.Errorf("%s: expected no-cache headers", path)
		}
		for _, want := range []string{`id="button-state" class="on">PRESSED`, `id="led-state" class="on">ON`, "192.168.1.42", "<td>2</td>"} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}

func TestHTMLBlinkModeHidesButton(t *testing.T) {
	ts, tr := newTestServer(t, "blink")
	tr.SetLED(logic.LedOff)

	_, _, body := getBody(t, ts.URL+"/")
	if strings.Contains(body, "button-state") {
		t.Error("blink mode should not render the button row")
	}
	if !strings.Contains(body, "500ms") {
		t.Error("blink mode should render the blink period")
	}
	if !strings.Contains(body, `id="led-state" class="off">OFF`) {
		t.Error("expected LED OFF")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, "button")

	code, _, _ := getBody(t, ts.URL+"/nonexistent")
	if code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, "button")

	resp, err := http.Post(ts.URL+"/index.json", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestUptimeFormat(t *testing.T) {
	fn := indexTmpl.Lookup("index")
	if fn == nil {
		t.Fatal("index template missing")
	}
	var sb strings.Builder
	snap := status.Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 2, 1, 2, 3, 0, time.UTC),
		Config:    status.Config{Mode: "button"},
	}
	renderHTML(&sb, snap)
	if !strings.Contains(sb.String(), "1d 1h 2m 3s") {
		t.Error("expected uptime 1d 1h 2m 3s in output")
	}
}
