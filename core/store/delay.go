package store

import "strconv"

// DelayState classifies the latest latency result of an endpoint.
type DelayState uint8

const (
	// Untested means no probe has completed for the endpoint yet.
	Untested DelayState = iota
	// Errored means the probe could not be carried out (translation, config
	// write, engine start or listener readiness failed).
	Errored
	// Unreachable means the engine ran but the measurement through it failed.
	Unreachable
	// Measured carries a positive round-trip time in Millis.
	Measured
)

// Legacy column values of the urls.delay column.
const (
	columnErrored     int64 = 0
	columnUnreachable int64 = -1
)

// Delay is the latency of an endpoint. Only Measured delays have Millis set.
type Delay struct {
	State  DelayState
	Millis int64
}

var (
	DelayUntested    = Delay{State: Untested}
	DelayErrored     = Delay{State: Errored}
	DelayUnreachable = Delay{State: Unreachable}
)

// MeasuredDelay returns a Measured delay. Sub-millisecond results round up to 1ms
// so they stay distinct from the Errored column value.
func MeasuredDelay(ms int64) Delay {
	if ms < 1 {
		ms = 1
	}
	return Delay{State: Measured, Millis: ms}
}

// DelayFromColumn maps the nullable integer column into a Delay.
func DelayFromColumn(v *int64) Delay {
	switch {
	case v == nil:
		return DelayUntested
	case *v > 0:
		return Delay{State: Measured, Millis: *v}
	case *v == columnUnreachable:
		return DelayUnreachable
	default:
		return DelayErrored
	}
}

// Column returns the value stored in the delay column; nil means NULL.
func (d Delay) Column() *int64 {
	var v int64
	switch d.State {
	case Untested:
		return nil
	case Measured:
		v = d.Millis
	case Unreachable:
		v = columnUnreachable
	default:
		v = columnErrored
	}
	return &v
}

// IsSpecial reports whether d is anything other than a positive measurement.
func (d Delay) IsSpecial() bool {
	return d.State != Measured || d.Millis <= 0
}

// Succeeded is the negation of IsSpecial; only measured delays count as success.
func (d Delay) Succeeded() bool {
	return !d.IsSpecial()
}

func (d Delay) String() string {
	switch d.State {
	case Untested:
		return "untested"
	case Errored:
		return "error"
	case Unreachable:
		return "unreachable"
	default:
		return strconv.FormatInt(d.Millis, 10) + "ms"
	}
}
