package domain

import (
	"fmt"
	"strings"
)

// LocationKey is the warehouse-internal identifier of a city. Queries only
// ever receive a LocationKey, never a display name.
type LocationKey string

// City maps a localized display name to its warehouse key
type City struct {
	Name string      `json:"name" yaml:"name"`
	Key  LocationKey `json:"key" yaml:"key"`
}

// DefaultCities is the built-in city list. The first entry is the default
// selection.
func DefaultCities() []City {
	return []City{
		{Name: "Hà Nội", Key: "Ha Noi City"},
		{Name: "Hồ Chí Minh", Key: "Ho Chi Minh City"},
		{Name: "Đà Nẵng", Key: "Da Nang City"},
	}
}

// CityDirectory is the static display-name to location-key mapping
type CityDirectory struct {
	cities []City
	byName map[string]City
	byKey  map[LocationKey]City
}

// NewCityDirectory validates and indexes a city list
func NewCityDirectory(cities []City) (*CityDirectory, error) {
	if len(cities) == 0 {
		return nil, fmt.Errorf("city directory: no cities configured")
	}

	d := &CityDirectory{
		cities: make([]City, 0, len(cities)),
		byName: make(map[string]City, len(cities)),
		byKey:  make(map[LocationKey]City, len(cities)),
	}
	for _, c := range cities {
		c.Name = strings.TrimSpace(c.Name)
		c.Key = LocationKey(strings.TrimSpace(string(c.Key)))
		if c.Name == "" || c.Key == "" {
			return nil, fmt.Errorf("city directory: entry %q/%q needs both a name and a key", c.Name, c.Key)
		}
		if _, dup := d.byName[c.Name]; dup {
			return nil, fmt.Errorf("city directory: duplicate city name %q", c.Name)
		}
		if _, dup := d.byKey[c.Key]; dup {
			return nil, fmt.Errorf("city directory: duplicate location key %q", c.Key)
		}
		d.cities = append(d.cities, c)
		d.byName[c.Name] = c
		d.byKey[c.Key] = c
	}
	return d, nil
}

// All returns the cities in selection order
func (d *CityDirectory) All() []City {
	out := make([]City, len(d.cities))
	copy(out, d.cities)
	return out
}

// Default returns the preselected city
func (d *CityDirectory) Default() City {
	return d.cities[0]
}

// Resolve translates a selection into a city. An empty selection means the
// default city; the warehouse key is accepted as well as the display name.
func (d *CityDirectory) Resolve(selection string) (City, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return d.Default(), nil
	}
	if c, ok := d.byName[selection]; ok {
		return c, nil
	}
	if c, ok := d.byKey[LocationKey(selection)]; ok {
		return c, nil
	}
	return City{}, fmt.Errorf("%w: %q", ErrUnknownCity, selection)
}
