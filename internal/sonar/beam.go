package sonar

import (
	"fmt"
	"strings"
)

// Beam identifies a side-scan channel. It is resolved once when pings are
// ingested; downstream code switches on the value, never on a name.
type Beam uint8

const (
	Port Beam = iota + 1
	Starboard
)

// Beams lists the side-scan channels in processing order.
var Beams = []Beam{Port, Starboard}

// ParseBeam maps a decoder channel name onto a Beam.
// Accepted spellings follow the common vendor exports ("ss_port",
// "port", "ss_star", "starboard", "star").
func ParseBeam(name string) (Beam, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "port", "ss_port", "sidescan_port":
		return Port, nil
	case "star", "starboard", "ss_star", "sidescan_starboard":
		return Starboard, nil
	}
	return 0, fmt.Errorf("unknown beam %q", name)
}

// Short returns the file-name token for the beam ("port" or "star").
func (b Beam) Short() string {
	switch b {
	case Port:
		return "port"
	case Starboard:
		return "star"
	}
	return "unknown"
}

func (b Beam) String() string {
	switch b {
	case Port:
		return "port"
	case Starboard:
		return "starboard"
	}
	return fmt.Sprintf("Beam(%d)", uint8(b))
}

// Side returns -1 for port (left of travel) and +1 for starboard.
func (b Beam) Side() float64 {
	if b == Port {
		return -1
	}
	return 1
}

// Valid reports whether b is one of the known channels.
func (b Beam) Valid() bool {
	return b == Port || b == Starboard
}
