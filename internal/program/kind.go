package program

import (
	"fmt"
	"strings"
)

// Kind identifies one catalogue program.
type Kind int

const (
	// KindSequentialDelayStop runs a motor for a fixed time after START.
	KindSequentialDelayStop Kind = iota + 1
	// KindRunWaitCycle alternates a motor between run and wait periods.
	KindRunWaitCycle
	// KindThreeStateCycle waits, then alternates run and pause periods.
	KindThreeStateCycle
	// KindSequentialTwoActuator staggers two motors on and off.
	KindSequentialTwoActuator
	// KindHoldToRun drives one motor from the START level and latches another.
	KindHoldToRun
	// KindSensorGatedCount gates motors with sensors and lights a lamp.
	KindSensorGatedCount
	// KindConveyorCounter counts products and cascades downstream motors.
	KindConveyorCounter
	// KindCarWashSequencer sequences a car wash.
	KindCarWashSequencer
	// KindTrafficLightSequencer cycles vehicle and pedestrian lights.
	KindTrafficLightSequencer
	// KindChaseLight walks a single lit LED around six outputs.
	KindChaseLight
)

var kindNames = map[Kind]string{
	KindSequentialDelayStop:   "sequential-delay-stop",
	KindRunWaitCycle:          "run-wait-cycle",
	KindThreeStateCycle:       "three-state-cycle",
	KindSequentialTwoActuator: "sequential-two-actuator",
	KindHoldToRun:             "hold-to-run",
	KindSensorGatedCount:      "sensor-gated-count",
	KindConveyorCounter:       "conveyor-counter",
	KindCarWashSequencer:      "car-wash-sequencer",
	KindTrafficLightSequencer: "traffic-light-sequencer",
	KindChaseLight:            "chase-light",
}

// Kinds returns every catalogue kind in menu order.
func Kinds() []Kind {
	return []Kind{
		KindSequentialDelayStop,
		KindRunWaitCycle,
		KindThreeStateCycle,
		KindSequentialTwoActuator,
		KindHoldToRun,
		KindSensorGatedCount,
		KindConveyorCounter,
		KindCarWashSequencer,
		KindTrafficLightSequencer,
		KindChaseLight,
	}
}

// KindNames returns the kebab-case names of every kind in menu order.
func KindNames() []string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// String returns the kebab-case name used on the command line.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is a catalogue kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Title returns a short human-readable name.
func (k Kind) Title() string {
	if def, ok := catalog[k]; ok {
		return def.title
	}
	return k.String()
}

// Description returns a one-line summary of the program's behaviour.
func (k Kind) Description() string {
	if def, ok := catalog[k]; ok {
		return def.description
	}
	return ""
}

// Inputs returns the declared input names, or nil for an invalid kind.
func (k Kind) Inputs() []string {
	if def, ok := catalog[k]; ok {
		return append([]string(nil), def.inputs...)
	}
	return nil
}

// Outputs returns the declared output names, or nil for an invalid kind.
func (k Kind) Outputs() []string {
	if def, ok := catalog[k]; ok {
		return append([]string(nil), def.outputs...)
	}
	return nil
}

// Parse resolves a kind from its name. Matching ignores case and accepts
// underscores in place of dashes.
func Parse(name string) (Kind, error) {
	want := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for k, n := range kindNames {
		if n == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown program %q: must be one of %v", name, KindNames())
}
