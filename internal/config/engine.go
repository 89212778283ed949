package config

import "strconv"

// Defaults for the engine scalars. Used whenever a value is unset or
// unparseable; configuration problems are never fatal.
const (
	DefaultAlpha      = 0.1
	DefaultBeta       = 1.2
	DefaultCap        = 8.0
	DefaultSwitchCost = 0.5
)

// Engine holds the four load-calculation scalars. An Engine value is
// snapshotted at engine construction and treated as immutable for the
// engine's lifetime.
type Engine struct {
	// Alpha scales the nonlinear task-count penalty.
	Alpha float64 `yaml:"alpha" json:"ALPHA"`
	// Beta is the task-count penalty exponent.
	Beta float64 `yaml:"beta" json:"BETA"`
	// Cap is the maximum sustainable daily adjusted load.
	Cap float64 `yaml:"cap" json:"CAP"`
	// SwitchCost is charged per distinct context beyond the first.
	SwitchCost float64 `yaml:"switch_cost" json:"SWITCH_COST"`
}

func (e *Engine) ApplyDefaults() {
	if e.Alpha == 0 {
		e.Alpha = DefaultAlpha
	}
	if e.Beta == 0 {
		e.Beta = DefaultBeta
	}
	if e.Cap == 0 {
		e.Cap = DefaultCap
	}
	if e.SwitchCost == 0 {
		e.SwitchCost = DefaultSwitchCost
	}
}

func DefaultEngine() Engine {
	var e Engine
	e.ApplyDefaults()
	return e
}

// EngineFromMap builds an Engine from the four-key string map
// (ALPHA, BETA, CAP, SWITCH_COST). Missing or unparseable keys fall
// back to defaults.
func EngineFromMap(m map[string]string) Engine {
	e := DefaultEngine()
	if v, ok := parseFloat(m["ALPHA"]); ok {
		e.Alpha = v
	}
	if v, ok := parseFloat(m["BETA"]); ok {
		e.Beta = v
	}
	if v, ok := parseFloat(m["CAP"]); ok {
		e.Cap = v
	}
	if v, ok := parseFloat(m["SWITCH_COST"]); ok {
		e.SwitchCost = v
	}
	return e
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
