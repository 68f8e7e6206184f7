// Package scheduler decides when cycles become eligible.
//
// Eligibility is computed by pure functions over injected times so the
// logic is testable without real time passing. Full cycles trigger on
// wall-clock anchor crossings, not elapsed intervals: downtime or drift
// never doubles or skips an anchor.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultLightPeriod is the light-cycle interval.
const DefaultLightPeriod = time.Minute

// ErrBadAnchor marks an anchor list that cannot be parsed. It surfaces at
// config load, before the daemon starts ticking.
var ErrBadAnchor = errors.New("unparseable anchor time")

// Anchor is a fixed wall-clock time of day at which a full cycle becomes
// eligible.
type Anchor struct {
	Hour   int
	Minute int
}

func (a Anchor) String() string { return fmt.Sprintf("%02d:%02d", a.Hour, a.Minute) }

// ParseAnchors parses a comma-separated list like "06:00,18:00".
func ParseAnchors(s string) ([]Anchor, error) {
	parts := strings.Split(s, ",")
	anchors := make([]Anchor, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		hh, mm, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadAnchor, p)
		}
		h, err := strconv.Atoi(hh)
		if err != nil || h < 0 || h > 23 {
			return nil, fmt.Errorf("%w: %q", ErrBadAnchor, p)
		}
		m, err := strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return nil, fmt.Errorf("%w: %q", ErrBadAnchor, p)
		}
		anchors = append(anchors, Anchor{Hour: h, Minute: m})
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: empty anchor list", ErrBadAnchor)
	}
	sort.Slice(anchors, func(i, j int) bool {
		if anchors[i].Hour != anchors[j].Hour {
			return anchors[i].Hour < anchors[j].Hour
		}
		return anchors[i].Minute < anchors[j].Minute
	})
	return anchors, nil
}

// FormatAnchors renders an anchor list back into the config form.
func FormatAnchors(anchors []Anchor) string {
	parts := make([]string, len(anchors))
	for i, a := range anchors {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// RunState tracks when cycles last ran. It lives only for the daemon's
// process lifetime and is passed explicitly into eligibility checks; a
// restart simply re-evaluates from wall-clock time.
type RunState struct {
	LastLight           time.Time
	LastFull            time.Time
	ConsecutiveFailures int
}

// lastOccurrence returns the most recent instant at or before now when the
// anchor's wall-clock time occurred in loc.
func lastOccurrence(now time.Time, a Anchor, loc *time.Location) time.Time {
	local := now.In(loc)
	occ := time.Date(local.Year(), local.Month(), local.Day(), a.Hour, a.Minute, 0, 0, loc)
	if occ.After(now) {
		occ = occ.AddDate(0, 0, -1)
	}
	return occ
}

// FullDue reports whether wall-clock time has crossed an anchor since the
// last full run. The reference time is lastFull, so a daemon that slept
// through several anchors runs exactly one catch-up full cycle.
func FullDue(now, lastFull time.Time, anchors []Anchor, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	for _, a := range anchors {
		occ := lastOccurrence(now, a, loc)
		if occ.After(lastFull) && !occ.After(now) {
			return true
		}
	}
	return false
}

// FullDueNow reports whether now falls inside an anchor's hour. Single-shot
// runs use this: with no previous run to reference, an invocation counts as
// a full refresh only when it lands on an anchor hour.
func FullDueNow(now time.Time, anchors []Anchor, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	h := now.In(loc).Hour()
	for _, a := range anchors {
		if a.Hour == h {
			return true
		}
	}
	return false
}

// LightDue reports whether the light-cycle period has elapsed since the
// last light run. A zero lastLight means the cycle has never run and is
// due immediately.
func LightDue(now, lastLight time.Time, period time.Duration) bool {
	if period <= 0 {
		period = DefaultLightPeriod
	}
	if lastLight.IsZero() {
		return true
	}
	return now.Sub(lastLight) >= period
}
