// Package config loads sketchprint settings from a YAML file, with
// environment variables (optionally from a .env file) taking precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tomgalvin.uk/sketchprint/printer"
)

const (
	DefaultPath = "sketchprint.yaml"
	envPrefix   = "SKETCHPRINT_"
)

type Config struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`
	Database string `yaml:"database"`

	Bluetooth struct {
		// Only connect to a device advertising exactly this name
		DeviceName string `yaml:"device_name"`
		// Only connect to devices advertising one of these services,
		// any device when empty
		Services    []string      `yaml:"services"`
		ScanTimeout time.Duration `yaml:"scan_timeout"`
		ChunkDelay  time.Duration `yaml:"chunk_delay"`
	} `yaml:"bluetooth"`

	ImageService struct {
		URL   string `yaml:"url"`
		Style string `yaml:"style"`
	} `yaml:"image_service"`

	// Appended to the built-in device profiles
	Profiles []Profile `yaml:"profiles"`
}

type Profile struct {
	Model         string `yaml:"model"`
	Name          string `yaml:"name"`
	BytesPerLine  int    `yaml:"bytes_per_line"`
	ServiceUUID   string `yaml:"service_uuid"`
	WriteUUID     string `yaml:"write_uuid"`
	NotifyUUID    string `yaml:"notify_uuid"`
	MTU           int    `yaml:"mtu"`
	LinesPerChunk int    `yaml:"lines_per_chunk"`
	// Hex encoded vendor frames, e.g. "1f110204"
	InitCommands []string `yaml:"init_commands"`
}

func Default() *Config {
	cfg := &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Database: "sketchprint.db",
	}
	cfg.Bluetooth.ScanTimeout = 30 * time.Second
	cfg.Bluetooth.ChunkDelay = printer.DefaultChunkDelay
	cfg.ImageService.URL = "https://image.pollinations.ai/prompt/{prompt}?width=384&height=384&nologo=true"
	cfg.ImageService.Style = "black and white line art, high contrast, no shading"
	return cfg
}

// Load reads the config file named by SKETCHPRINT_CONFIG, or DefaultPath.
// A missing file just means defaults. Environment overrides are applied
// last.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Couldn't load .env file:\n%w", err)
	}

	path := os.Getenv(envPrefix + "CONFIG")
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("No config file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("Couldn't read config file %s:\n%w", path, err)
	default:
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("Couldn't parse config file %s:\n%w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// Parse overlays YAML data onto cfg.
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyEnv(getenv func(string) string) {
	override := func(dst *string, name string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	override(&c.Listen, "LISTEN")
	override(&c.LogLevel, "LOG_LEVEL")
	override(&c.Database, "DB")
	override(&c.Bluetooth.DeviceName, "DEVICE_NAME")
	override(&c.ImageService.URL, "IMAGE_URL")

	if v := getenv(envPrefix + "SERVICES"); v != "" {
		c.Bluetooth.Services = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Bluetooth.Services = append(c.Bluetooth.Services, s)
			}
		}
	}
	if v := getenv(envPrefix + "CHUNK_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Bluetooth.ChunkDelay = d
		} else {
			slog.Warn("Ignoring invalid chunk delay", "value", v, "error", err)
		}
	}
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Registry builds the device profile registry: built-in profiles first, then
// the ones from the config file in order.
func (c *Config) Registry() (*printer.Registry, error) {
	profiles := []printer.DeviceProfile{printer.PhomemoT02, printer.EscPosBLE}
	for _, p := range c.Profiles {
		dp, err := p.deviceProfile()
		if err != nil {
			return nil, fmt.Errorf("Profile %q:\n%w", p.Model, err)
		}
		profiles = append(profiles, dp)
	}
	return printer.NewRegistry(profiles...)
}

func (p Profile) deviceProfile() (printer.DeviceProfile, error) {
	dp := printer.DeviceProfile{
		Model:         p.Model,
		Name:          p.Name,
		BytesPerLine:  p.BytesPerLine,
		ServiceUUID:   p.ServiceUUID,
		WriteUUID:     p.WriteUUID,
		NotifyUUID:    p.NotifyUUID,
		MTU:           p.MTU,
		LinesPerChunk: p.LinesPerChunk,
	}
	if dp.BytesPerLine == 0 {
		dp.BytesPerLine = printer.DeviceDots / 8
	}
	for i, c := range p.InitCommands {
		b, err := hex.DecodeString(strings.ReplaceAll(c, " ", ""))
		if err != nil {
			return dp, fmt.Errorf("Init command %d is not valid hex:\n%w", i, err)
		}
		dp.InitCommands = append(dp.InitCommands, b)
	}
	return dp, nil
}
