package program

import "github.com/roach88/plcsim/internal/plc"

var (
	gatedMotors      = []string{"MOTOR1", "MOTOR2", "MOTOR3", "MOTOR4"}
	downstreamMotors = []string{"MOTOR2", "MOTOR3", "MOTOR4"}
)

// switchOn sets name and notes it when it was off.
func switchOn(s *plc.Scan, name, format string, args ...any) {
	if s.Output(name) {
		return
	}
	s.SetOutput(name, true)
	s.Notef(format, args...)
}

// stepSensorGatedCount is purely combinational. No rule drives MOTOR2 or
// reads SENSOR3, so the MOTOR4 and LAMP rung never fires.
func stepSensorGatedCount(p *Program, s *plc.Scan) {
	start := s.Input("START")
	if start && s.Input("SENSOR1") {
		switchOn(s, "MOTOR1", "MOTOR1 started by SENSOR1")
	}
	if start && s.Input("SENSOR2") {
		switchOn(s, "MOTOR3", "MOTOR3 started by SENSOR2")
	}
	if start && s.Output("MOTOR1") && s.Output("MOTOR2") && s.Output("MOTOR3") {
		switchOn(s, "MOTOR4", "MOTOR4 started")
		switchOn(s, "LAMP", "LAMP on")
	}

	if s.Input("STOP") {
		for _, m := range gatedMotors {
			if s.Output(m) {
				s.SetOutput(m, false)
				s.Notef("%s stopped", m)
			}
		}
		if s.Output("LAMP") && !anyOn(s, gatedMotors) {
			s.SetOutput("LAMP", false)
			s.Notef("LAMP off")
		}
	}

	if anyOn(s, gatedMotors) || s.Output("LAMP") {
		p.state = StateActive
	} else {
		p.state = StateIdle
	}
}

// stepConveyorCounter runs the main belt from START and counts SENSOR edges
// while it runs. Counts 5, 10 and 15 start the downstream belts, each of
// which stops itself after its own timer. Count 20 stops the line and
// resets the counter and timers.
func stepConveyorCounter(p *Program, s *plc.Scan) {
	product := p.counter("PRODUCT")

	if s.Input("START") && !s.Output("MOTOR1") {
		s.SetOutput("MOTOR1", true)
		p.enter(s, StateRunning, "conveyor started")
	}

	if s.Input("STOP") {
		if p.state != StateIdle || anyOn(s, gatedMotors) {
			p.enter(s, StateIdle, "stopped")
		}
		setAll(s, gatedMotors, false)
		product.Reset()
		p.resetTimers()
		return
	}

	if s.Output("MOTOR1") {
		before := product.Current()
		product.CountUp(s.Input("SENSOR"), false)
		if count := product.Current(); count != before {
			s.Notef("product %d", count)
			switch count {
			case 5:
				switchOn(s, "MOTOR2", "MOTOR2 started at %d products", count)
			case 10:
				switchOn(s, "MOTOR3", "MOTOR3 started at %d products", count)
			case 15:
				switchOn(s, "MOTOR4", "MOTOR4 started at %d products", count)
			}
		}
		if product.Done() {
			setAll(s, gatedMotors, false)
			product.Reset()
			p.resetTimers()
			p.enter(s, StateIdle, "%d products, line stopped and reset", product.Preset())
		}
	}

	for _, m := range downstreamMotors {
		t := p.timer("T_" + m)
		t.Update(s.Output(m))
		if t.Done() {
			s.SetOutput(m, false)
			t.Reset()
			s.Notef("%s stopped after %s", m, t.Preset())
		}
	}
}
