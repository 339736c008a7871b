package program

import "time"

var ledNames = []string{"LED1", "LED2", "LED3", "LED4", "LED5", "LED6"}

var catalog = map[Kind]*definition{
	KindSequentialDelayStop: {
		title:       "Sequential delay stop",
		description: "START runs the motor; it stops by itself after 15 s.",
		inputs:      []string{"START", "STOP"},
		outputs:     []string{"MOTOR"},
		timers:      []timerSpec{{"T1", 15 * time.Second}},
		start:       StateIdle,
		step:        stepSequentialDelayStop,
	},
	KindRunWaitCycle: {
		title:       "Run/wait cycle",
		description: "After START the motor runs 10 s, waits 10 s and repeats.",
		inputs:      []string{"START", "STOP"},
		outputs:     []string{"MOTOR"},
		timers:      []timerSpec{{"T_RUN", 10 * time.Second}, {"T_WAIT", 10 * time.Second}},
		start:       StateIdle,
		step:        stepRunWaitCycle,
	},
	KindThreeStateCycle: {
		title:       "Three-state cycle",
		description: "After START waits 15 s, then alternates 15 s run and 15 s pause.",
		inputs:      []string{"START", "STOP"},
		outputs:     []string{"MOTOR"},
		timers:      []timerSpec{{"T1", 15 * time.Second}},
		start:       StateIdle,
		step:        stepThreeStateCycle,
	},
	KindSequentialTwoActuator: {
		title:       "Sequential two motors",
		description: "Staggers MOTOR1 and MOTOR2 on and off in 15 s steps.",
		inputs:      []string{"START", "STOP"},
		outputs:     []string{"MOTOR1", "MOTOR2"},
		timers:      []timerSpec{{"T1", 15 * time.Second}},
		start:       StateIdle,
		step:        stepSequentialTwoActuator,
	},
	KindHoldToRun: {
		title:       "Hold to run",
		description: "MOTOR1 runs while START is held; MOTOR2 keeps running until STOP.",
		inputs:      []string{"START", "STOP"},
		outputs:     []string{"MOTOR1", "MOTOR2"},
		start:       StateIdle,
		step:        stepHoldToRun,
	},
	KindSensorGatedCount: {
		title:       "Sensor-gated motors",
		description: "Sensors gate motors under START; three motors light the lamp.",
		inputs:      []string{"START", "STOP", "SENSOR1", "SENSOR2", "SENSOR3"},
		outputs:     []string{"MOTOR1", "MOTOR2", "MOTOR3", "MOTOR4", "LAMP"},
		start:       StateIdle,
		step:        stepSensorGatedCount,
	},
	KindConveyorCounter: {
		title:       "Conveyor product counter",
		description: "Counts products; 5, 10 and 15 start downstream belts, 20 stops the line.",
		inputs:      []string{"START", "STOP", "SENSOR"},
		outputs:     []string{"MOTOR1", "MOTOR2", "MOTOR3", "MOTOR4"},
		timers: []timerSpec{
			{"T_MOTOR2", 5 * time.Second},
			{"T_MOTOR3", 5 * time.Second},
			{"T_MOTOR4", 5 * time.Second},
		},
		counters: []counterSpec{{"PRODUCT", 20}},
		start:    StateIdle,
		step:     stepConveyorCounter,
	},
	KindCarWashSequencer: {
		title:       "Car wash",
		description: "Water, detergent, brushes, steam and dryer after a car is detected.",
		inputs:      []string{"CAR_DETECTED", "BRUSH_AT_END", "BRUSH_AT_START"},
		outputs:     []string{"WATER", "DETERGENT", "BRUSH_FORWARD", "BRUSH_REVERSE", "HOT_STEAM", "DRYER"},
		timers: []timerSpec{
			{"T1", 10 * time.Second},
			{"T2", 20 * time.Second},
			{"T3", 5 * time.Second},
			{"T4", 10 * time.Second},
			{"T5", 20 * time.Second},
		},
		start: StateIdle,
		step:  stepCarWashSequencer,
	},
	KindTrafficLightSequencer: {
		title:       "Traffic light",
		description: "Vehicle and pedestrian lights with a blinking green phase.",
		outputs:     []string{"VEHICLE_RED", "VEHICLE_YELLOW", "VEHICLE_GREEN", "PEDESTRIAN_RED", "PEDESTRIAN_GREEN"},
		initial:     map[string]bool{"VEHICLE_RED": true, "PEDESTRIAN_GREEN": true},
		timers: []timerSpec{
			{"T1", 10 * time.Second},
			{"T2", 3 * time.Second},
			{"T3", 10 * time.Second},
			{"T_BLINK", 500 * time.Millisecond},
			{"T4", 2 * time.Second},
		},
		start: StateRed,
		step:  stepTrafficLightSequencer,
	},
	KindChaseLight: {
		title:       "Chase light",
		description: "One of six LEDs is lit at a time, moving on every second.",
		inputs:      []string{"START", "STOP"},
		outputs:     ledNames,
		timers:      []timerSpec{{"T1", time.Second}},
		start:       StateHalted,
		step:        stepChaseLight,
	},
}
