package domain

import (
	"fmt"
	"time"
)

// DefaultDayOffsetHours is the ledger's fixed calendar-day boundary.
// Field collections close on Philippine business days (UTC+8), not UTC
// and not the host's local zone.
const DefaultDayOffsetHours = 8

// DayLocation returns a fixed-offset location for ledger day arithmetic.
func DayLocation(offsetHours int) *time.Location {
	name := fmt.Sprintf("UTC+%d", offsetHours)
	if offsetHours < 0 {
		name = fmt.Sprintf("UTC%d", offsetHours)
	}
	return time.FixedZone(name, offsetHours*3600)
}

// DayWindow returns the [start, end) bounds of the ledger calendar day
// containing asOf, in the given location.
func DayWindow(asOf time.Time, loc *time.Location) (time.Time, time.Time) {
	local := asOf.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// DayKey formats the ledger calendar day of asOf as YYYY-MM-DD. Stored
// alongside each adjustment so the (member, day) unique index can close
// the check-then-act race on concurrent applies.
func DayKey(asOf time.Time, loc *time.Location) string {
	return asOf.In(loc).Format("2006-01-02")
}
