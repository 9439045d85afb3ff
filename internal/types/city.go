package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Position is the map location a city was added from.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the coordinates are on the globe.
func (p Position) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrBadRequest, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrBadRequest, p.Lng)
	}
	return nil
}

// NewCity is the payload used to create a city. The identifier is assigned by the server.
type NewCity struct {
	CityName string    `json:"cityName"`        // Display name of the city.
	Country  string    `json:"country"`         // Country the city belongs to.
	Emoji    string    `json:"emoji"`           // Country flag emoji.
	Date     time.Time `json:"date"`            // When the city was visited.
	Notes    string    `json:"notes,omitempty"` // Optional free-form note.
	Position Position  `json:"position"`        // Where the city was picked on the map.
}

// Validate reports the first problem found in the payload.
func (c NewCity) Validate() error {
	if c.CityName == "" {
		return fmt.Errorf("%w: cityName is required", ErrBadRequest)
	}
	if c.Country == "" {
		return fmt.Errorf("%w: country is required", ErrBadRequest)
	}
	if c.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrBadRequest)
	}
	return c.Position.Validate()
}

// City is a visited city as stored by the city API.
type City struct {
	ID       uuid.UUID `json:"id"`
	CityName string    `json:"cityName"`
	Country  string    `json:"country"`
	Emoji    string    `json:"emoji"`
	Date     time.Time `json:"date"`
	Notes    string    `json:"notes,omitempty"`
	Position Position  `json:"position"`
}

// IsEmpty reports whether c is the empty-record sentinel (no city selected).
func (c City) IsEmpty() bool {
	return c.ID == uuid.Nil
}

// Validate checks a city record received from the city API.
func (c City) Validate() error {
	if c.ID == uuid.Nil {
		return errors.New("id is required")
	}
	return c.Payload().Validate()
}

// Payload returns the city without its identifier.
func (c City) Payload() NewCity {
	return NewCity{
		CityName: c.CityName,
		Country:  c.Country,
		Emoji:    c.Emoji,
		Date:     c.Date,
		Notes:    c.Notes,
		Position: c.Position,
	}
}

// Country groups cities by country for the countries list.
type Country struct {
	Country string `json:"country"`
	Emoji   string `json:"emoji"`
}

// CountriesOf returns the distinct countries of cities in first-seen order.
// The emoji of the first city seen for a country wins.
func CountriesOf(cities []City) []Country {
	seen := make(map[string]struct{}, len(cities))
	countries := make([]Country, 0, len(cities))
	for _, c := range cities {
		if _, ok := seen[c.Country]; ok {
			continue
		}
		seen[c.Country] = struct{}{}
		countries = append(countries, Country{Country: c.Country, Emoji: c.Emoji})
	}
	return countries
}
