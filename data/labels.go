package data

import (
	"strconv"

	"github.com/tournox/tournox/pkg/errors"
)

// Era labels one time period of rows. Eras era0..era149 are regular
// periods; EraX marks rows with no assigned era (test and live rows).
type Era int

// EraX is the sentinel era for rows outside the regular era sequence.
const EraX Era = 999

// maxEra is the largest regular era the canonical mapping covers.
const maxEra = 149

// Valid reports whether e is part of the closed era enumeration.
func (e Era) Valid() bool {
	return (e >= 0 && e <= maxEra) || e == EraX
}

// String returns the canonical era name ("era7", "eraX").
func (e Era) String() string {
	if e == EraX {
		return "eraX"
	}
	return "era" + strconv.Itoa(int(e))
}

// Float returns the canonical float encoding of e.
func (e Era) Float() float64 {
	return float64(e)
}

// ParseEra converts a canonical era name back to an Era.
// Unknown names are a ValueError, not a passthrough.
func ParseEra(s string) (Era, error) {
	if s == "eraX" {
		return EraX, nil
	}
	if len(s) < 4 || s[:3] != "era" {
		return 0, errors.NewValueError("ParseEra", "not an era label: "+s)
	}
	n, err := strconv.Atoi(s[3:])
	if err != nil || n < 0 || n > maxEra {
		return 0, errors.NewValueError("ParseEra", "unknown era: "+s)
	}
	return Era(n), nil
}

// Region labels the competition phase of a row.
type Region int

const (
	Train Region = iota
	Validation
	Test
	Live
)

var regionNames = map[Region]string{
	Train:      "train",
	Validation: "validation",
	Test:       "test",
	Live:       "live",
}

var regionValues = map[string]Region{
	"train":      Train,
	"validation": Validation,
	"test":       Test,
	"live":       Live,
}

// TournamentRegions are the regions a production model predicts on.
var TournamentRegions = []Region{Validation, Test, Live}

// Valid reports whether r is part of the closed region enumeration.
func (r Region) Valid() bool {
	_, ok := regionNames[r]
	return ok
}

// String returns the canonical region name.
func (r Region) String() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return "region(" + strconv.Itoa(int(r)) + ")"
}

// Float returns the canonical float encoding of r.
func (r Region) Float() float64 {
	return float64(r)
}

// ParseRegion converts a canonical region name back to a Region.
// Unknown names are a ValueError, not a passthrough.
func ParseRegion(s string) (Region, error) {
	if r, ok := regionValues[s]; ok {
		return r, nil
	}
	return 0, errors.NewValueError("ParseRegion", "unknown region: "+s)
}
