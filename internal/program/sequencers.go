package program

import "github.com/roach88/plcsim/internal/plc"

// stepCarWashSequencer walks one wash cycle per detected car.
func stepCarWashSequencer(p *Program, s *plc.Scan) {
	switch p.state {
	case StateIdle:
		if s.Input("CAR_DETECTED") {
			p.enter(s, StateDelay, "car detected")
		}
	case StateDelay:
		if p.expired("T1") {
			s.SetOutput("WATER", true)
			p.enter(s, StateWater, "water on")
		}
	case StateWater:
		if p.expired("T2") {
			s.SetOutput("DETERGENT", true)
			p.enter(s, StateDetergent, "detergent on")
		}
	case StateDetergent:
		if p.expired("T3") {
			s.SetOutput("DETERGENT", false)
			s.SetOutput("BRUSH_FORWARD", true)
			p.enter(s, StateBrushForward, "brushes forward")
		}
	case StateBrushForward:
		if s.Input("BRUSH_AT_END") {
			s.SetOutput("BRUSH_FORWARD", false)
			s.SetOutput("BRUSH_REVERSE", true)
			p.enter(s, StateBrushReverse, "brushes reverse")
		}
	case StateBrushReverse:
		if s.Input("BRUSH_AT_START") {
			s.SetOutput("BRUSH_REVERSE", false)
			s.SetOutput("WATER", false)
			s.SetOutput("HOT_STEAM", true)
			p.enter(s, StateSteam, "hot steam on")
		}
	case StateSteam:
		if p.expired("T4") {
			s.SetOutput("HOT_STEAM", false)
			s.SetOutput("DRYER", true)
			p.enter(s, StateDry, "dryer on")
		}
	case StateDry:
		if p.expired("T5") {
			s.SetOutput("DRYER", false)
			p.resetTimers()
			p.enter(s, StateIdle, "wash complete")
		}
	}
}

// lamps is one vehicle/pedestrian light configuration, in output order.
type lamps struct {
	vehicleRed, vehicleYellow, vehicleGreen, pedestrianRed, pedestrianGreen bool
}

func (l lamps) apply(s *plc.Scan) {
	s.SetOutput("VEHICLE_RED", l.vehicleRed)
	s.SetOutput("VEHICLE_YELLOW", l.vehicleYellow)
	s.SetOutput("VEHICLE_GREEN", l.vehicleGreen)
	s.SetOutput("PEDESTRIAN_RED", l.pedestrianRed)
	s.SetOutput("PEDESTRIAN_GREEN", l.pedestrianGreen)
}

var (
	redLamps    = lamps{vehicleRed: true, pedestrianGreen: true}
	yellowLamps = lamps{vehicleYellow: true, pedestrianRed: true}
	greenLamps  = lamps{vehicleGreen: true, pedestrianRed: true}
)

// blinkToggles is the number of VEHICLE_GREEN toggles in the blink phase.
const blinkToggles = 10

// stepTrafficLightSequencer cycles red, yellow, green, blinking green and a
// yellow clearance phase. It runs without inputs.
func stepTrafficLightSequencer(p *Program, s *plc.Scan) {
	switch p.state {
	case StateRed:
		redLamps.apply(s)
		if p.expired("T1") {
			p.enter(s, StateYellow, "vehicle yellow")
		}
	case StateYellow:
		yellowLamps.apply(s)
		if p.expired("T2") {
			p.enter(s, StateGreen, "vehicle green")
		}
	case StateGreen:
		greenLamps.apply(s)
		if p.expired("T3") {
			p.blinks = 0
			p.enter(s, StateBlink, "vehicle green blinking")
		}
	case StateBlink:
		if p.expired("T_BLINK") {
			s.SetOutput("VEHICLE_GREEN", !s.Output("VEHICLE_GREEN"))
			p.blinks++
			if p.blinks >= blinkToggles {
				s.SetOutput("VEHICLE_GREEN", false)
				s.SetOutput("VEHICLE_YELLOW", true)
				p.enter(s, StateClearance, "vehicle yellow clearance")
			}
		}
	case StateClearance:
		if p.expired("T4") {
			p.enter(s, StateRed, "cycle complete")
		}
	}
}

// stepChaseLight lights LED1..LED6 in turn, one per T1 period, while running.
func stepChaseLight(p *Program, s *plc.Scan) {
	if s.Input("START") && !p.started {
		p.started = true
		p.led = 1
		p.enter(s, StateRunning, "chase started")
	}

	if s.Input("STOP") {
		if p.started {
			p.enter(s, StateHalted, "chase stopped")
		}
		p.started = false
		setAll(s, ledNames, false)
		p.timer("T1").Reset()
		return
	}

	if !p.started || !p.expired("T1") {
		return
	}
	setAll(s, ledNames, false)
	s.SetOutput(ledNames[p.led-1], true)
	s.Notef("%s on", ledNames[p.led-1])
	p.led = p.led%len(ledNames) + 1
}
