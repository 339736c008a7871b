package program

import "github.com/roach88/plcsim/internal/plc"

// stepSequentialDelayStop: START runs MOTOR while it is off, T1 times the
// run and stops it.
func stepSequentialDelayStop(p *Program, s *plc.Scan) {
	if s.Input("START") && !s.Output("MOTOR") {
		s.SetOutput("MOTOR", true)
		p.enter(s, StateRunning, "motor started")
	}

	if s.Input("STOP") {
		if p.state != StateIdle {
			p.enter(s, StateIdle, "stopped")
		}
		s.SetOutput("MOTOR", false)
		p.timer("T1").Reset()
		return
	}

	t1 := p.timer("T1")
	t1.Update(s.Output("MOTOR"))
	if t1.Done() {
		s.SetOutput("MOTOR", false)
		t1.Reset()
		p.enter(s, StateIdle, "motor stopped after %s", t1.Preset())
	}
}

// stepRunWaitCycle alternates MOTOR between T_RUN on and T_WAIT off.
func stepRunWaitCycle(p *Program, s *plc.Scan) {
	if s.Input("START") && p.state == StateIdle {
		s.SetOutput("MOTOR", true)
		p.enter(s, StateRun, "motor started")
	}

	if s.Input("STOP") {
		if p.state != StateIdle {
			p.enter(s, StateIdle, "stopped")
		}
		s.SetOutput("MOTOR", false)
		p.resetTimers()
		return
	}

	switch p.state {
	case StateRun:
		if p.expired("T_RUN") {
			s.SetOutput("MOTOR", false)
			p.enter(s, StateWait, "motor stopped")
		}
	case StateWait:
		if p.expired("T_WAIT") {
			s.SetOutput("MOTOR", true)
			p.enter(s, StateRun, "motor restarted")
		}
	}
}

// stepThreeStateCycle waits T1 after START, then alternates run and pause
// periods of T1 each.
func stepThreeStateCycle(p *Program, s *plc.Scan) {
	if s.Input("START") && p.state == StateIdle {
		p.enter(s, StateDelay, "started, waiting %s", p.timer("T1").Preset())
	}

	if s.Input("STOP") {
		if p.state != StateIdle {
			p.enter(s, StateIdle, "stopped")
		}
		s.SetOutput("MOTOR", false)
		p.timer("T1").Reset()
		return
	}

	switch p.state {
	case StateDelay:
		if p.expired("T1") {
			s.SetOutput("MOTOR", true)
			p.enter(s, StateRun, "motor started")
		}
	case StateRun:
		if p.expired("T1") {
			s.SetOutput("MOTOR", false)
			p.enter(s, StatePause, "motor stopped")
		}
	case StatePause:
		if p.expired("T1") {
			s.SetOutput("MOTOR", true)
			p.enter(s, StateRun, "motor restarted")
		}
	}
}

// stepSequentialTwoActuator staggers MOTOR1 and MOTOR2:
// delay, M1, M1+M2, M2, none, then back to M1.
func stepSequentialTwoActuator(p *Program, s *plc.Scan) {
	if s.Input("START") && p.state == StateIdle {
		p.enter(s, StateDelay, "started")
	}

	if s.Input("STOP") {
		if p.state != StateIdle {
			p.enter(s, StateIdle, "stopped")
		}
		s.SetOutput("MOTOR1", false)
		s.SetOutput("MOTOR2", false)
		p.timer("T1").Reset()
		return
	}

	if p.state == StateIdle || !p.expired("T1") {
		return
	}

	switch p.state {
	case StateDelay:
		s.SetOutput("MOTOR1", true)
		p.enter(s, StateMotor1, "MOTOR1 started")
	case StateMotor1:
		s.SetOutput("MOTOR2", true)
		p.enter(s, StateBoth, "MOTOR2 started")
	case StateBoth:
		s.SetOutput("MOTOR1", false)
		p.enter(s, StateMotor2, "MOTOR1 stopped")
	case StateMotor2:
		s.SetOutput("MOTOR2", false)
		p.enter(s, StateNone, "MOTOR2 stopped")
	case StateNone:
		s.SetOutput("MOTOR1", true)
		p.enter(s, StateMotor1, "MOTOR1 restarted")
	}
}

// stepHoldToRun: both motors run while START is held. Releasing START stops
// MOTOR1; only STOP stops MOTOR2.
func stepHoldToRun(p *Program, s *plc.Scan) {
	if s.Input("START") {
		s.SetOutput("MOTOR1", true)
		s.SetOutput("MOTOR2", true)
		if !p.started {
			p.started = true
			s.Notef("MOTOR1 and MOTOR2 started")
		}
	} else if s.Output("MOTOR1") {
		s.SetOutput("MOTOR1", false)
		p.started = false
		s.Notef("MOTOR1 stopped")
	}

	if s.Input("STOP") && s.Output("MOTOR2") {
		s.SetOutput("MOTOR2", false)
		s.Notef("MOTOR2 stopped")
	}

	if s.Output("MOTOR1") || s.Output("MOTOR2") {
		p.state = StateRunning
	} else {
		p.state = StateIdle
	}
}
