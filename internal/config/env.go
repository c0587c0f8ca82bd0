package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LUMALINK_RECEIVE_THRESHOLD.
const EnvPrefix = "LUMALINK"

// LoadEnv reads the settings present in the environment. Keys follow the
// config file layout with sections and dashes turned into underscores.
func LoadEnv() FileConfig {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg FileConfig
	cfg.Transmit.Code = envString(v, "transmit.code")
	cfg.Transmit.FPS = envFloat(v, "transmit.fps")
	cfg.Transmit.Footer = envBool(v, "transmit.footer")
	cfg.Receive.Code = envString(v, "receive.code")
	cfg.Receive.Threshold = envFloat(v, "receive.threshold")
	cfg.Receive.Camera = envString(v, "receive.camera")
	cfg.Receive.Timeout = envString(v, "receive.timeout")
	cfg.Stats.CurveWindow = envInt(v, "stats.curve-window")
	return cfg
}

// Load combines the config file at path with environment overrides.
func Load(path string) (FileConfig, error) {
	fileCfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	return Merge(fileCfg, LoadEnv()), nil
}

func envString(v *viper.Viper, key string) *string {
	if !v.IsSet(key) {
		return nil
	}
	s := v.GetString(key)
	return &s
}

func envFloat(v *viper.Viper, key string) *float64 {
	if !v.IsSet(key) {
		return nil
	}
	f := v.GetFloat64(key)
	return &f
}

func envInt(v *viper.Viper, key string) *int {
	if !v.IsSet(key) {
		return nil
	}
	n := v.GetInt(key)
	return &n
}

func envBool(v *viper.Viper, key string) *bool {
	if !v.IsSet(key) {
		return nil
	}
	b := v.GetBool(key)
	return &b
}
