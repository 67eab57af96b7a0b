package internal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/button-led/internal/config"
	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/mqtt"
)

// pipeline is the per-tick flow of the daemon wired with fakes:
// read -> debounce -> sinks -> publish -> drive LED.
type pipeline struct {
	reader    gpio.Reader
	writer    *gpio.FakeWriter
	input     *logic.SampledInput
	coupler   *logic.OutputCoupler
	counter   *logic.PressCounter
	publisher *mqtt.FakePublisher
	start     time.Time
	interval  time.Duration
	ticks     int
}

func newPipeline(cfg *config.Config, levels []bool) *pipeline {
	p := &pipeline{
		reader:    gpio.NewFakeReader(levels),
		writer:    gpio.NewFakeWriter(),
		input:     logic.NewSampledInput(cfg.Input()),
		coupler:   logic.NewOutputCoupler(cfg.LED.BlinkDelay),
		counter:   &logic.PressCounter{},
		publisher: mqtt.NewFakePublisher(),
		start:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	p.interval = p.input.SampleInterval()
	return p
}

func (p *pipeline) step(t *testing.T) logic.Event {
	t.Helper()
	now := p.start.Add(time.Duration(p.ticks) * p.interval)
	p.ticks++

	level, err := p.reader.Read()
	if err != nil {
		t.Fatalf("tick %d: gpio read error: %v", p.ticks, err)
	}
	e := p.input.Update(level)
	logic.Sinks{p.coupler, p.counter}.HandleEvent(e)
	if e != logic.EventNone {
		if err := p.publisher.Publish(mqtt.Event{
			Timestamp:  now,
			Type:       e,
			State:      p.input.State(),
			LED:        p.coupler.Level(),
			PressCount: p.input.PressCount(),
		}); err != nil {
			t.Fatalf("tick %d: publish error: %v", p.ticks, err)
		}
	}
	if err := p.writer.Set(logic.ToPhysicalLevel(p.coupler.Level())); err != nil {
		t.Fatalf("tick %d: led write error: %v", p.ticks, err)
	}
	return e
}

func (p *pipeline) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p.step(t)
	}
}

func levels(parts ...interface{}) []bool {
	var out []bool
	for i := 0; i+1 < len(parts); i += 2 {
		lvl := parts[i].(bool)
		n := parts[i+1].(int)
		for j := 0; j < n; j++ {
			out = append(out, lvl)
		}
	}
	return out
}

// TestIntegrationFullFlow drives press, hold and release through the default
// configuration (active-low, threshold 5, 5ms sampling).
func TestIntegrationFullFlow(t *testing.T) {
	cfg := config.Default()
	// high idle, a bouncy press, a long hold, a bouncy release, high idle
	samples := levels(
		true, 3,
		false, 1, true, 1, false, 2, true, 1,
		false, 20,
		true, 1, false, 1,
		true, 10,
	)
	p := newPipeline(cfg, samples)
	p.run(t, len(samples))

	if len(p.publisher.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(p.publisher.Events))
	}
	if p.publisher.Events[0].Type != logic.EventPress || p.publisher.Events[0].LED != logic.LedOn {
		t.Errorf("event 0: got %+v", p.publisher.Events[0])
	}
	if p.publisher.Events[1].Type != logic.EventRelease || p.publisher.Events[1].LED != logic.LedOff {
		t.Errorf("event 1: got %+v", p.publisher.Events[1])
	}

	// The press commits on the 5th sample of the uninterrupted low run.
	wantPressAt := p.start.Add(time.Duration(3+5+4) * 5 * time.Millisecond)
	if !p.publisher.Events[0].Timestamp.Equal(wantPressAt) {
		t.Errorf("press timestamp: got %v, want %v", p.publisher.Events[0].Timestamp, wantPressAt)
	}

	if p.counter.Presses != 1 || p.counter.Releases != 1 {
		t.Errorf("counter: got %+v", *p.counter)
	}
	if p.input.PressCount() != 1 {
		t.Errorf("input press count: got %d", p.input.PressCount())
	}
	if last, _ := p.writer.Last(); last {
		t.Error("expected LED off at the end")
	}

	for i, payload := range p.publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Button.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Button.Event == "" {
			t.Errorf("payload %d: missing event", i)
		}
	}
}

// TestIntegrationLEDMirrorsButton checks the LED level equals the debounced
// button state after every tick.
func TestIntegrationLEDMirrorsButton(t *testing.T) {
	cfg := config.Default()
	cfg.Button.Threshold = 3
	samples := levels(false, 4, true, 2, false, 1, true, 6, false, 3)
	p := newPipeline(cfg, samples)

	for i := range samples {
		p.step(t)
		led, _ := p.writer.Last()
		if led != p.input.IsPressed() {
			t.Fatalf("tick %d: LED=%v but pressed=%v", i, led, p.input.IsPressed())
		}
	}
	if p.counter.Presses != 2 {
		t.Errorf("expected 2 presses, got %d", p.counter.Presses)
	}
}

// TestIntegrationActiveHighFromYAML loads an active-high configuration and
// verifies polarity is applied end to end.
func TestIntegrationActiveHighFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
button:
  polarity: active-high
  threshold: 2
  debounce_delay: 10ms
`))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}

	p := newPipeline(cfg, levels(false, 5, true, 2, false, 2))
	p.run(t, 9)

	if p.interval != 10*time.Millisecond {
		t.Errorf("interval: got %v, want 10ms", p.interval)
	}
	if len(p.publisher.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(p.publisher.Events))
	}
	if p.publisher.Events[0].Type != logic.EventPress {
		t.Errorf("expected PRESS on high level, got %s", p.publisher.Events[0].Type)
	}
}

// TestIntegrationClampedConfig verifies out-of-range delays are clamped
// before they reach the core.
func TestIntegrationClampedConfig(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
button:
  debounce_delay: 1s
led:
  blink_delay: 1ms
`))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	p := newPipeline(cfg, levels(true, 1))

	if p.input.SampleInterval() != logic.DebounceBounds.Max {
		t.Errorf("sample interval: got %v, want %v", p.input.SampleInterval(), logic.DebounceBounds.Max)
	}
	if p.coupler.Period() != logic.BlinkBounds.Min {
		t.Errorf("blink period: got %v, want %v", p.coupler.Period(), logic.BlinkBounds.Min)
	}
}

// TestIntegrationPublishErrorDoesNotStopLED verifies a failing broker never
// affects the LED.
func TestIntegrationPublishErrorDoesNotStopLED(t *testing.T) {
	cfg := config.Default()
	p := newPipeline(cfg, levels(false, 5))
	p.publisher.PublishError = errors.New("connection refused")

	for i := 0; i < 5; i++ {
		e := p.input.Update(mustRead(t, p.reader))
		p.coupler.HandleEvent(e)
		if e != logic.EventNone {
			if err := p.publisher.Publish(mqtt.Event{Type: e}); err == nil {
				t.Error("expected publish error")
			}
		}
		if err := p.writer.Set(logic.ToPhysicalLevel(p.coupler.Level())); err != nil {
			t.Fatalf("led write: %v", err)
		}
	}

	if last, _ := p.writer.Last(); !last {
		t.Error("expected LED on")
	}
	if len(p.publisher.Events) != 0 {
		t.Errorf("expected no recorded events, got %d", len(p.publisher.Events))
	}
}

// TestIntegrationBlinkMode toggles the coupler the way the blink loop does.
func TestIntegrationBlinkMode(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModeBlink
	coupler := logic.NewOutputCoupler(cfg.LED.BlinkDelay)
	writer := gpio.NewFakeWriter()

	for i := 0; i < 6; i++ {
		if err := writer.Set(logic.ToPhysicalLevel(coupler.Toggle())); err != nil {
			t.Fatalf("led write: %v", err)
		}
	}

	want := []bool{true, false, true, false, true, false}
	for i, w := range want {
		if writer.Levels[i] != w {
			t.Errorf("write %d: got %v, want %v", i, writer.Levels[i], w)
		}
	}
	if coupler.Period() != 500*time.Millisecond {
		t.Errorf("period: got %v", coupler.Period())
	}
}

func mustRead(t *testing.T, r gpio.Reader) bool {
	t.Helper()
	lvl, err := r.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return lvl
}
