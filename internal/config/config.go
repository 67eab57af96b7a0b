// Package config holds the daemon configuration: defaults, bounds profiles
// and optional YAML file loading. Values are passed into constructors
// explicitly; nothing in the core reads package-level constants.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-led/internal/logic"
)

// Modes of operation.
const (
	ModeButton = "button" // LED mirrors the debounced button
	ModeBlink  = "blink"  // LED toggles every blink delay
)

// Default pin assignments (BCM numbering).
const (
	DefaultPinButton = 15
	DefaultPinLED    = 16
)

// Config models button-led.yml.
type Config struct {
	Mode   string       `yaml:"mode"`
	Button ButtonConfig `yaml:"button"`
	LED    LEDConfig    `yaml:"led"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
}

// ButtonConfig configures the sampled input.
type ButtonConfig struct {
	Pin           int           `yaml:"pin"`
	Polarity      string        `yaml:"polarity"`
	DebounceDelay time.Duration `yaml:"debounce_delay"`
	Threshold     uint32        `yaml:"threshold"`
}

// LEDConfig configures the output line.
type LEDConfig struct {
	Pin        int           `yaml:"pin"`
	BlinkDelay time.Duration `yaml:"blink_delay"`
}

// GPIOConfig selects the character device.
type GPIOConfig struct {
	Chip string `yaml:"chip"`
}

// MQTTConfig configures event publishing. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig configures the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode: ModeButton,
		Button: ButtonConfig{
			Pin:           DefaultPinButton,
			Polarity:      string(logic.ActiveLow),
			DebounceDelay: logic.DefaultSampleInterval,
			Threshold:     logic.DefaultThreshold,
		},
		LED: LEDConfig{
			Pin:        DefaultPinLED,
			BlinkDelay: logic.DefaultBlinkPeriod,
		},
		GPIO: GPIOConfig{Chip: "gpiochip0"},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			ClientID:  "button-led",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// FromYAML parses YAML on top of the defaults, then validates and
// normalises the result. Keys absent from the document keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults when path is empty, and otherwise
// behaves like FromFile.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return FromFile(path)
}

// Validate rejects values that cannot be coerced into something sensible.
// Out-of-range delays are not errors; Normalize clamps them.
func (c *Config) Validate() error {
	if c.Mode != ModeButton && c.Mode != ModeBlink {
		return fmt.Errorf("config.mode must be %q or %q, got %q", ModeButton, ModeBlink, c.Mode)
	}
	if _, err := logic.ParsePolarity(c.Button.Polarity); err != nil {
		return fmt.Errorf("config.button.polarity: %w", err)
	}
	if c.Button.Pin < 0 {
		return fmt.Errorf("config.button.pin must be >= 0, got %d", c.Button.Pin)
	}
	if c.LED.Pin < 0 {
		return fmt.Errorf("config.led.pin must be >= 0, got %d", c.LED.Pin)
	}
	if c.Mode == ModeButton && c.Button.Pin == c.LED.Pin {
		return fmt.Errorf("config.button.pin and config.led.pin must differ (both %d)", c.LED.Pin)
	}
	if c.GPIO.Chip == "" {
		return fmt.Errorf("config.gpio.chip is required")
	}
	return nil
}

// Normalize clamps delays into their bounds profiles and returns the names
// of the fields it changed. Callers wanting strict validation can treat a
// non-empty result as an error.
func (c *Config) Normalize() []string {
	var clamped []string
	if d := logic.DebounceBounds.Clamp(c.Button.DebounceDelay); d != c.Button.DebounceDelay {
		c.Button.DebounceDelay = d
		clamped = append(clamped, "button.debounce_delay")
	}
	if d := logic.BlinkBounds.Clamp(c.LED.BlinkDelay); d != c.LED.BlinkDelay {
		c.LED.BlinkDelay = d
		clamped = append(clamped, "led.blink_delay")
	}
	return clamped
}

// ClampedFields reports which fields Normalize would change, without
// modifying c.
func (c *Config) ClampedFields() []string {
	cp := *c
	return cp.Normalize()
}

// Polarity returns the parsed button polarity, falling back to active-low.
func (c *Config) Polarity() logic.Polarity {
	p, err := logic.ParsePolarity(c.Button.Polarity)
	if err != nil {
		return logic.ActiveLow
	}
	return p
}

// Input returns the SampledInput parameters.
func (c *Config) Input() logic.InputConfig {
	return logic.InputConfig{
		Threshold:      c.Button.Threshold,
		SampleInterval: c.Button.DebounceDelay,
		Polarity:       c.Polarity(),
	}
}
