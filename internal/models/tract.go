package models

import (
	"fmt"
	"strconv"
)

// Layout of a census block FIPS code: state (2), county (3), tract (6), block (4).
const (
	tractStart    = 5
	tractEnd      = 11
	countyFIPSLen = 5
	stateFIPSLen  = 2
)

// Tract is a census tract code, unique within its county.
type Tract int

// String renders the tract in its canonical six-digit form.
func (t Tract) String() string {
	return fmt.Sprintf("%06d", int(t))
}

// TractFromBlockFIPS extracts the tract code from a block FIPS identifier.
// The tract occupies characters 6 through 11 (1-indexed) of the identifier.
func TractFromBlockFIPS(fips string) (Tract, error) {
	if len(fips) < tractEnd {
		return 0, fmt.Errorf("%w: block FIPS %q is shorter than %d characters",
			ErrMalformedResponse, fips, tractEnd)
	}

	digits := fips[tractStart:tractEnd]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: block FIPS %q has a non-numeric tract %q", ErrMalformedResponse, fips, digits)
		}
	}

	code, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: parse tract %q: %w", ErrMalformedResponse, digits, err)
	}

	return Tract(code), nil
}

// Block is the census block that contains a coordinate, along with its parent geographies.
type Block struct {
	FIPS       string `json:"fips"`                  // Full block FIPS identifier.
	Tract      Tract  `json:"tract"`                 // Tract code derived from FIPS.
	CountyFIPS string `json:"county_fips,omitempty"` // Five-digit state+county code.
	CountyName string `json:"county_name,omitempty"`
	StateFIPS  string `json:"state_fips,omitempty"`
	StateCode  string `json:"state_code,omitempty"` // Postal abbreviation, e.g. "IL".
	StateName  string `json:"state_name,omitempty"`
}

// NewBlock builds a Block from its FIPS identifier. County and state codes are
// derived from the identifier prefix and may be overwritten by richer data later.
func NewBlock(fips string) (*Block, error) {
	tract, err := TractFromBlockFIPS(fips)
	if err != nil {
		return nil, err
	}

	return &Block{
		FIPS:       fips,
		Tract:      tract,
		CountyFIPS: fips[:countyFIPSLen],
		StateFIPS:  fips[:stateFIPSLen],
	}, nil
}

// Resolution is the outcome of a successful address-to-tract lookup.
type Resolution struct {
	Address     Address     `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Block       Block       `json:"block"`
}
