// Package harness runs scenario tests against the program catalogue.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: chase_light_walks
//	description: "What this scenario validates"
//	program: chase-light
//	period: 250ms
//	until: 2.5s
//	steps:
//	  - at: 0s
//	    set: { START: true }
//	  - at: 2.5s
//	    expect:
//	      outputs: { LED1: false, LED2: true }
//	      state: running
//	      timers: { T1: { timing: true } }
//	assertions:
//	  - type: trace_order
//	    signals: [LED1, LED2]
//
// Each step applies at the first tick whose virtual time is at or after At:
// its inputs are set before the scan and its expectations checked after it.
//
// # Assertion Types
//
//   - trace_contains: a signal changed to the given value at some tick
//   - trace_order: signals rose to true in the given order
//   - trace_count: a signal changed to the given value exactly N times
//   - final_state: state tag and outputs after the last tick
//
// # Deterministic Testing
//
// Every scenario runs on a virtual clock starting at testutil.Epoch, with a
// fixed run id, against a fresh in-memory trace store. The trace is read back
// from the store, so identical scenarios produce byte-identical golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/chase_light.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
