package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Transmit TransmitConfig `toml:"transmit"`
	Receive  ReceiveConfig  `toml:"receive"`
	Stats    StatsConfig    `toml:"stats"`
}

// TransmitConfig maps transmitter settings.
type TransmitConfig struct {
	Code   *string  `toml:"code"`
	FPS    *float64 `toml:"fps"`
	Footer *bool    `toml:"footer"`
}

// ReceiveConfig maps receiver settings. Timeout is a Go duration string.
type ReceiveConfig struct {
	Code      *string  `toml:"code"`
	Threshold *float64 `toml:"threshold"`
	Camera    *string  `toml:"camera"`
	Timeout   *string  `toml:"timeout"`
}

// StatsConfig maps stats settings.
type StatsConfig struct {
	CurveWindow *int `toml:"curve-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Merge returns base with every value set in override replacing it.
func Merge(base, override FileConfig) FileConfig {
	out := base
	pick(&out.Transmit.Code, override.Transmit.Code)
	pick(&out.Transmit.FPS, override.Transmit.FPS)
	pick(&out.Transmit.Footer, override.Transmit.Footer)
	pick(&out.Receive.Code, override.Receive.Code)
	pick(&out.Receive.Threshold, override.Receive.Threshold)
	pick(&out.Receive.Camera, override.Receive.Camera)
	pick(&out.Receive.Timeout, override.Receive.Timeout)
	pick(&out.Stats.CurveWindow, override.Stats.CurveWindow)
	return out
}

func pick[T any](target **T, value *T) {
	if value != nil {
		*target = value
	}
}
