package serdes

import (
	"errors"
	"fmt"
)

// Mode is the direction of a Packet. It is fixed when the Packet is created.
type Mode uint8

const (
	Storing Mode = iota
	Loading
)

func (m Mode) String() string {
	switch m {
	case Storing:
		return "STORING"
	case Loading:
		return "LOADING"
	default:
		return "UNKNOWN"
	}
}

// Status is the sticky outcome of a Packet.
type Status uint8

const (
	OK Status = iota
	Overflow
	Underrun
	InvalidValue
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Overflow:
		return "overflow"
	case Underrun:
		return "underrun"
	case InvalidValue:
		return "invalid-value"
	default:
		return "unknown"
	}
}

var (
	ErrOverflow     = errors.New("serdes: overflow")
	ErrUnderrun     = errors.New("serdes: underrun")
	ErrInvalidValue = errors.New("serdes: invalid value")
)

// Err returns the sentinel error for s, or nil for OK.
func (s Status) Err() error {
	switch s {
	case OK:
		return nil
	case Overflow:
		return ErrOverflow
	case Underrun:
		return ErrUnderrun
	default:
		return ErrInvalidValue
	}
}

// Error is the error form of a failed Packet.
type Error struct {
	Status Status
	Detail string
	Bit    uint64
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at bit %d", e.Status.Err(), e.Bit)
	}
	return fmt.Sprintf("%v at bit %d: %s", e.Status.Err(), e.Bit, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Status.Err()
}

// Result is returned by the one-shot Store and Load entry points.
type Result struct {
	Status Status
	Bits   uint64
	Detail string
}

func (r Result) Ok() bool {
	return r.Status == OK
}

func (r Result) Err() error {
	if r.Status == OK {
		return nil
	}
	return &Error{Status: r.Status, Detail: r.Detail, Bit: r.Bits}
}
