// Package config loads run configuration files.
//
// A configuration file is CUE. It is unified with an embedded schema whose
// program enum is built from the catalogue, validated for concreteness, and
// decoded into a Config. Duration fields are Go duration strings.
//
//	program:  "chase-light"
//	period:   "10ms"
//	duration: "30s"
//	script: [
//		{at: "0s", set: {START: true}},
//		{at: "20ms", set: {START: false}},
//	]
//
// Signal names in a script are normalized with plc.NormalizeName and must be
// inputs of the chosen program.
package config
