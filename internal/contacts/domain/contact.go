// Package domain holds the contact entity and its value types.
package domain

import (
	"github.com/google/uuid"

	"contacts_backend/platform/phone"
)

// NameUnknown is the sentinel used when a contact is created without a name.
const NameUnknown = "no name"

// Temperature is the manually assigned outreach warmth classification.
type Temperature string

const (
	TemperatureCold Temperature = "cold"
	TemperatureWarm Temperature = "warm"
	TemperatureHot  Temperature = "hot"
)

// Temperatures lists all valid values in ascending warmth order.
var Temperatures = []Temperature{TemperatureCold, TemperatureWarm, TemperatureHot}

// Valid reports whether t is one of the three known values.
func (t Temperature) Valid() bool {
	switch t {
	case TemperatureCold, TemperatureWarm, TemperatureHot:
		return true
	}
	return false
}

// Contact is the sole entity of the system. RegionCode is derived once at
// creation from the raw phone string and never recomputed; phone is not
// editable after creation.
type Contact struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	RegionCode  string      `json:"regionCode"`
	Contacted   bool        `json:"contacted"`
	Temperature Temperature `json:"temperature"`
	Consultant  string      `json:"consultant"`
}

// NewContact creates a contact with a fresh unique id, the derived region
// code, and default outreach state. A blank name falls back to the
// NameUnknown sentinel. The same construction path serves both the bulk
// import and the explicit add operation.
func NewContact(name, rawPhone, consultant string) Contact {
	if name == "" {
		name = NameUnknown
	}
	return Contact{
		ID:          uuid.NewString(),
		Name:        name,
		Phone:       rawPhone,
		RegionCode:  phone.Region(rawPhone),
		Contacted:   false,
		Temperature: TemperatureCold,
		Consultant:  consultant,
	}
}

// Roster is the fixed enumeration of named consultants.
type Roster struct {
	names []string
}

// NewRoster builds a roster from the configured consultant names.
// The first name is the default.
func NewRoster(names []string) Roster {
	return Roster{names: names}
}

// Names returns the consultants in configured order.
func (r Roster) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Default returns the first enumerated consultant, or "" for an empty roster.
func (r Roster) Default() string {
	if len(r.names) == 0 {
		return ""
	}
	return r.names[0]
}

// Contains reports whether name is part of the roster.
func (r Roster) Contains(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// Resolve returns name when it is a roster member and the default
// consultant otherwise. This is the single default-resolution point for
// optional consultant values.
func (r Roster) Resolve(name string) string {
	if r.Contains(name) {
		return name
	}
	return r.Default()
}
