package store

import (
	"database/sql"
	"time"
)

// Kind of a scan_records row.
const (
	KindInput  = "input"
	KindOutput = "output"
	KindNote   = "note"
	KindFault  = "fault"
)

// Times are stored as Unix nanoseconds so virtual-clock runs round-trip
// exactly.
func encodeTime(t time.Time) int64 {
	return t.UnixNano()
}

func decodeTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func decodeNullTime(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := decodeTime(ns.Int64)
	return &t
}

func encodeBool(v bool) int {
	if v {
		return 1
	}
	return 0
}

func decodeNullBool(v sql.NullInt64) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Int64 != 0
	return &b
}
