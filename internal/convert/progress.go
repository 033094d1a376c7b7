package convert

import (
	"strconv"
	"strings"
	"time"

	"audio2video/internal/domain"
)

// Snapshot is one decoded frame of the encoder's progress stream.
type Snapshot struct {
	Elapsed  time.Duration
	Progress domain.Progress
	End      bool
}

// Parser reduces ffmpeg's -progress stream into snapshots. The stream is a
// sequence of key=value lines; each reporting frame ends with a "progress"
// line whose value is "continue" or "end". One parser serves one job.
//
// Malformed or unrecognized lines are skipped rather than failing the job,
// and emitted fractions never decrease even if the encoder reports a lower
// elapsed time after a flush.
type Parser struct {
	total        time.Duration
	elapsed      time.Duration
	lastFraction float64
}

// NewParser creates a parser for a job with the given total audio duration.
// A zero total means the duration is unknown and every snapshot carries the
// indeterminate signal instead of a fraction.
func NewParser(total time.Duration) *Parser {
	return &Parser{total: total}
}

// Feed consumes one line. It returns a snapshot and true when the line
// completed a reporting frame.
func (p *Parser) Feed(line string) (Snapshot, bool) {
	line = strings.TrimSpace(line)
	key, value, found := strings.Cut(line, "=")
	if !found {
		return Snapshot{}, false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		// Despite the name, out_time_ms is also microseconds.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.elapsed = time.Duration(us) * time.Microsecond
		}
	case "out_time":
		if d, ok := parseClock(value); ok {
			p.elapsed = d
		}
	case "progress":
		return p.snapshot(value == "end"), true
	}

	return Snapshot{}, false
}

// snapshot freezes the current frame into an immutable reading.
func (p *Parser) snapshot(end bool) Snapshot {
	snap := Snapshot{Elapsed: p.elapsed, End: end}

	if p.total <= 0 {
		snap.Progress = domain.Progress{Indeterminate: true}
		return snap
	}

	fraction := float64(p.elapsed) / float64(p.total)
	if end {
		fraction = 1.0
	}
	if fraction > 1.0 {
		fraction = 1.0
	}
	if fraction < p.lastFraction {
		fraction = p.lastFraction
	}
	p.lastFraction = fraction
	snap.Progress = domain.Progress{Fraction: fraction}
	return snap
}

// parseClock decodes ffmpeg's HH:MM:SS.micros clock format.
func parseClock(value string) (time.Duration, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || seconds < 0 {
		return 0, false
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return d, true
}
