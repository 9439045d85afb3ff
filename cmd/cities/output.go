package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/FACorreiaa/go-worldwise/internal/types"
)

// printer renders store state as aligned text or JSON.
type printer struct {
	format string
	w      io.Writer
}

func (p *printer) cities(cities []types.City) error {
	if p.format == formatJSON {
		if cities == nil {
			cities = []types.City{}
		}
		return p.json(cities)
	}
	if len(cities) == 0 {
		_, err := fmt.Fprintln(p.w, "No cities yet. Add one with `cities add`.")
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCITY\tCOUNTRY\tVISITED\tPOSITION\tNOTES")
	for _, c := range cities {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Emoji, c.CityName, c.Country, c.Date.Format(time.DateOnly), position(c.Position), c.Notes)
	}
	return tw.Flush()
}

func (p *printer) countries(countries []types.Country) error {
	if p.format == formatJSON {
		return p.json(countries)
	}
	if len(countries) == 0 {
		_, err := fmt.Fprintln(p.w, "No countries yet. Add a city with `cities add`.")
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, c := range countries {
		fmt.Fprintf(tw, "%s\t%s\n", c.Emoji, c.Country)
	}
	return tw.Flush()
}

func (p *printer) city(c types.City) error {
	if p.format == formatJSON {
		return p.json(c)
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", c.ID)
	fmt.Fprintf(tw, "City\t%s %s\n", c.Emoji, c.CityName)
	fmt.Fprintf(tw, "Country\t%s\n", c.Country)
	fmt.Fprintf(tw, "Visited\t%s\n", c.Date.Format("Monday, January 2, 2006"))
	fmt.Fprintf(tw, "Position\t%s\n", position(c.Position))
	if c.Notes != "" {
		fmt.Fprintf(tw, "Notes\t%s\n", c.Notes)
	}
	return tw.Flush()
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func position(pos types.Position) string {
	return fmt.Sprintf("%.4f, %.4f", pos.Lat, pos.Lng)
}
