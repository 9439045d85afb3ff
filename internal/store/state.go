package store

import (
	"slices"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-worldwise/internal/types"
)

// State is what a UI renders. CurrentCity is the zero City when nothing
// has been selected yet.
type State struct {
	Cities      []types.City
	CurrentCity types.City
	IsLoading   bool
	Error       string
}

func (s State) clone() State {
	s.Cities = slices.Clone(s.Cities)
	return s
}

type actionKind int

const (
	actionLoading actionKind = iota
	actionCitiesLoaded
	actionCityLoaded
	actionCityCreated
	actionCityDeleted
	actionRejected
)

func (k actionKind) String() string {
	switch k {
	case actionLoading:
		return "loading"
	case actionCitiesLoaded:
		return "cities/loaded"
	case actionCityLoaded:
		return "city/loaded"
	case actionCityCreated:
		return "city/created"
	case actionCityDeleted:
		return "city/deleted"
	case actionRejected:
		return "rejected"
	}
	return "unknown"
}

type action struct {
	kind   actionKind
	cities []types.City
	city   types.City
	id     uuid.UUID
	err    error
}

// reduce returns the state after a. It never mutates s; slices in the
// result are fresh copies whenever they change.
func reduce(s State, a action) State {
	switch a.kind {
	case actionLoading:
		s.IsLoading = true
	case actionCitiesLoaded:
		s.Cities = slices.Clone(a.cities)
		s.Error = ""
	case actionCityLoaded:
		s.CurrentCity = a.city
		s.Error = ""
	case actionCityCreated:
		cities := make([]types.City, 0, len(s.Cities)+1)
		cities = append(cities, s.Cities...)
		s.Cities = append(cities, a.city)
		s.Error = ""
	case actionCityDeleted:
		s.Cities = slices.DeleteFunc(slices.Clone(s.Cities), func(c types.City) bool {
			return c.ID == a.id
		})
		s.Error = ""
	case actionRejected:
		if a.err != nil {
			s.Error = a.err.Error()
		}
	}
	return s
}
