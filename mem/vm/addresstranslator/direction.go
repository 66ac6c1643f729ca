package addresstranslator

import (
	"errors"
	"fmt"
)

// ErrUnknownDirection is returned for directions other than v2p and p2v.
var ErrUnknownDirection = errors.New("unknown direction")

// Direction selects which address space the input address belongs to.
type Direction int

// Translation directions.
const (
	DirectionV2P Direction = iota
	DirectionP2V
)

func (d Direction) String() string {
	switch d {
	case DirectionV2P:
		return "v2p"
	case DirectionP2V:
		return "p2v"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection converts "v2p" or "p2v" into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "v2p":
		return DirectionV2P, nil
	case "p2v":
		return DirectionP2V, nil
	default:
		return 0, fmt.Errorf("%q, want v2p or p2v: %w", s, ErrUnknownDirection)
	}
}

// MarshalText encodes the direction as v2p or p2v.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes v2p or p2v.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
