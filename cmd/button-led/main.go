// Command button-led samples a push button over GPIO, debounces it and drives
// an LED from the debounced state. Edges are published to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/button-led/internal/config"
	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/mqtt"
	"github.com/sweeney/button-led/internal/status"
	"github.com/sweeney/button-led/internal/web"
)

func main() {
	def := config.Default()

	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	mode := flag.String("mode", def.Mode, `Operating mode: "button" or "blink"`)
	debounce := flag.Duration("debounce", def.Button.DebounceDelay, "Button sampling interval")
	threshold := flag.Uint("threshold", uint(def.Button.Threshold), "Consecutive equal samples required to commit a state change")
	polarity := flag.String("polarity", def.Button.Polarity, `Button polarity: "active-low" or "active-high"`)
	blink := flag.Duration("blink", def.LED.BlinkDelay, "LED toggle period in blink mode")
	pinButton := flag.Int("pin-button", def.Button.Pin, "BCM pin number for the button")
	pinLED := flag.Int("pin-led", def.LED.Pin, "BCM pin number for the LED")
	chip := flag.String("chip", def.GPIO.Chip, "GPIO character device")
	broker := flag.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current button state and exit")

	flag.Parse()

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags given explicitly on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = *mode
		case "debounce":
			cfg.Button.DebounceDelay = *debounce
		case "threshold":
			cfg.Button.Threshold = uint32(*threshold)
		case "polarity":
			cfg.Button.Polarity = *polarity
		case "blink":
			cfg.LED.BlinkDelay = *blink
		case "pin-button":
			cfg.Button.Pin = *pinButton
		case "pin-led":
			cfg.LED.Pin = *pinLED
		case "chip":
			cfg.GPIO.Chip = *chip
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.MQTT.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP.Addr = *httpAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	for _, field := range cfg.Normalize() {
		log.Printf("config: %s out of range, clamped", field)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printState bool) error {
	if printState {
		return printButtonState(cfg)
	}

	writer, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.LED.Pin)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer writer.Close()

	var reader gpio.Reader
	if cfg.Mode == config.ModeButton {
		r, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.Button.Pin, gpio.BiasForActiveLow(cfg.Polarity() == logic.ActiveLow))
		if err != nil {
			return fmt.Errorf("init button: %w", err)
		}
		defer r.Close()
		reader = r
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		publisher = mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	coupler := logic.NewOutputCoupler(cfg.LED.BlinkDelay)

	if cfg.Mode == config.ModeBlink {
		log.Printf("started: mode=blink period=%v pin-led=%d broker=%q", coupler.Period(), cfg.LED.Pin, cfg.MQTT.Broker)
		ticker := time.NewTicker(coupler.Period())
		defer ticker.Stop()
		return runBlinkLoop(writer, coupler, publisher, tracker, time.Now, ticker.C, sigCh)
	}

	input := logic.NewSampledInput(cfg.Input())
	log.Printf("started: mode=button sample=%v threshold=%d polarity=%s pin-button=%d pin-led=%d broker=%q heartbeat=%v",
		input.SampleInterval(), input.Threshold(), input.Polarity(), cfg.Button.Pin, cfg.LED.Pin, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(input.SampleInterval())
	defer ticker.Stop()

	return runButtonLoop(reader, writer, input, coupler, publisher, publisher, tracker, cfg.MQTT.Heartbeat, time.Now, ticker.C, sigCh)
}

func printButtonState(cfg *config.Config) error {
	reader, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.Button.Pin, gpio.BiasForActiveLow(cfg.Polarity() == logic.ActiveLow))
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer reader.Close()

	level, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}
	fmt.Printf("Button: %s (level=%s)\n", logic.ToButtonState(level, cfg.Polarity()), levelString(level))
	return nil
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		Mode:        cfg.Mode,
		SampleMs:    cfg.Button.DebounceDelay.Milliseconds(),
		Threshold:   cfg.Button.Threshold,
		Polarity:    string(cfg.Polarity()),
		BlinkMs:     cfg.LED.BlinkDelay.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	}
}

// runButtonLoop samples the button once per tick, feeds the debouncer and
// drives the LED from the debounced state until a signal arrives.
func runButtonLoop(reader gpio.Reader, writer gpio.Writer, input *logic.SampledInput, coupler *logic.OutputCoupler, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(heartbeat, now())
	counter := &logic.PressCounter{}
	sinks := logic.Sinks{coupler, counter}

	updateTracker := func() {
		if tracker == nil {
			return
		}
		tracker.Update(input.State(), coupler.Level(), *counter)
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	if err := writer.Set(logic.ToPhysicalLevel(coupler.Level())); err != nil {
		log.Printf("led write error: %v", err)
	}
	updateTracker()

	for {
		select {
		case s := <-sig:
			publishShutdown(s, publisher, mqttStatus, tracker, now)
			return nil

		case <-tick:
			t := now()
			level, err := reader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}

			e := input.Update(level)
			sinks.HandleEvent(e)

			if e != logic.EventNone {
				log.Printf("event: %s (button=%s led=%s presses=%d)", e, input.State(), coupler.Level(), input.PressCount())
				ev := mqtt.Event{
					Timestamp:  t,
					Type:       e,
					State:      input.State(),
					LED:        coupler.Level(),
					PressCount: input.PressCount(),
				}
				if err := publisher.Publish(ev); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			if err := writer.Set(logic.ToPhysicalLevel(coupler.Level())); err != nil {
				log.Printf("led write error: %v", err)
			}

			updateTracker()

			if hbData := hb.Check(t, input.PressCount()); hbData != nil {
				log.Printf("heartbeat: uptime=%v presses=%d releases=%d", hbData.Uptime, hbData.Presses, counter.Releases)
				publishHeartbeat(hbData, publisher, tracker)
			}
		}
	}
}

// runBlinkLoop toggles the LED once per tick until a signal arrives.
func runBlinkLoop(writer gpio.Writer, coupler *logic.OutputCoupler, publisher mqtt.Publisher, tracker *status.Tracker, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	if err := writer.Set(logic.ToPhysicalLevel(coupler.Level())); err != nil {
		log.Printf("led write error: %v", err)
	}
	if tracker != nil {
		tracker.SetLED(coupler.Level())
	}

	for {
		select {
		case s := <-sig:
			publishShutdown(s, publisher, nil, tracker, now)
			return nil

		case <-tick:
			led := coupler.Toggle()
			if err := writer.Set(logic.ToPhysicalLevel(led)); err != nil {
				log.Printf("led write error: %v", err)
			}
			if tracker != nil {
				tracker.SetLED(led)
			}
		}
	}
}

func publishShutdown(s os.Signal, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time) {
	log.Printf("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	event := mqtt.SystemEvent{
		Timestamp: now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if tracker != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func publishHeartbeat(hbData *logic.HeartbeatData, publisher mqtt.Publisher, tracker *status.Tracker) {
	hbEvent := mqtt.SystemEvent{
		Timestamp: hbData.Timestamp,
		Event:     "HEARTBEAT",
	}
	if tracker != nil {
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			tracker.SetNetwork(net)
		}
		hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
