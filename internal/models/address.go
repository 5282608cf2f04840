package models

import "strings"

// Address is a street address to be resolved into a census tract.
type Address struct {
	Street string `json:"street"` // Street is the house number and street name.
	City   string `json:"city"`   // City is the city or town name.
	State  string `json:"state"`  // State is the state name or postal code.
}

// Query joins the address components into the single-line form sent to the geocoder.
// Components are separated by a bare comma, e.g. "5801 S Ellis Ave,Chicago,IL".
func (a Address) Query() string {
	return a.Street + "," + a.City + "," + a.State
}

// Validate reports ErrInvalidAddress when any component is blank.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Street) == "":
		return &InvalidAddressError{Field: "street"}
	case strings.TrimSpace(a.City) == "":
		return &InvalidAddressError{Field: "city"}
	case strings.TrimSpace(a.State) == "":
		return &InvalidAddressError{Field: "state"}
	}

	return nil
}
