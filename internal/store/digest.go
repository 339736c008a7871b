package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// DomainTrace separates trace digests from any other hash of the same bytes.
// The version suffix allows the encoding to change.
const DomainTrace = "plcsim/trace/v1"

type digestHeader struct {
	Program  string `json:"program"`
	PeriodNs int64  `json:"period_ns"`
}

type digestEntry struct {
	Tick   uint64 `json:"tick"`
	AtNs   int64  `json:"at_ns"`
	State  string `json:"state"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Value  *bool  `json:"value"`
	Detail string `json:"detail"`
}

// Digest returns a SHA-256 content hash of a run's program, period and
// entries. Entry times are taken relative to run.StartedAt and the run id is
// left out, so two runs that behaved identically hash equal.
//
// Format: SHA256(DomainTrace + 0x00 + header + entries), each a JSON line.
func Digest(run Run, entries []Entry) (string, error) {
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})

	enc := json.NewEncoder(h)
	if err := enc.Encode(digestHeader{Program: run.Program, PeriodNs: int64(run.Period)}); err != nil {
		return "", fmt.Errorf("digest header: %w", err)
	}
	for _, e := range entries {
		if err := enc.Encode(digestEntry{
			Tick:   e.Tick,
			AtNs:   int64(e.At.Sub(run.StartedAt) / time.Nanosecond),
			State:  e.State,
			Kind:   e.Kind,
			Name:   e.Name,
			Value:  e.Value,
			Detail: e.Detail,
		}); err != nil {
			return "", fmt.Errorf("digest tick %d: %w", e.Tick, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
