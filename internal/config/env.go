package config

import (
	"os"
	"strconv"
)

// FromEnv applies environment overrides on top of cfg.
// Falls back to the existing values if variables are not set.
func FromEnv(cfg *Config) *Config {
	if cfg == nil {
		cfg = Default()
	}

	if v := os.Getenv("VISIONARK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("VISIONARK_DATA_DIR"); v != "" {
		cfg.Server.DataDir = v
	}
	if v := getEnvInt("VISIONARK_EXPAND_DAYS"); v > 0 {
		cfg.Server.ExpandDays = v
	}

	if v, ok := getEnvFloat("VISIONARK_ALPHA"); ok {
		cfg.Engine.Alpha = v
	}
	if v, ok := getEnvFloat("VISIONARK_BETA"); ok {
		cfg.Engine.Beta = v
	}
	if v, ok := getEnvFloat("VISIONARK_CAP"); ok {
		cfg.Engine.Cap = v
	}
	if v, ok := getEnvFloat("VISIONARK_SWITCH_COST"); ok {
		cfg.Engine.SwitchCost = v
	}

	return cfg
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

func getEnvFloat(key string) (float64, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}
