package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-worldwise/internal/types"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visited cities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			return s.printer.cities(s.store.Snapshot().Cities)
		},
	}
}

func newCountriesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List the countries of visited cities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			return s.printer.countries(s.store.Countries())
		},
	}
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid city id %q: %w", args[0], err)
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			city, err := s.store.GetCity(cmd.Context(), id)
			if err != nil {
				return err
			}
			return s.printer.city(city)
		},
	}
}

type addOptions struct {
	Name    string
	Country string
	Emoji   string
	Lat     float64
	Lng     float64
	Date    string
	Notes   string
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	addOpts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a visited city",
		Example: `  cities add --name Lisbon --country Portugal --emoji 🇵🇹 --lat 38.72 --lng -9.14
  cities add --name Berlin --country Germany --lat 52.52 --lng 13.40 --date 2024-03-01 --notes "Cold"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			newCity, err := addOpts.payload(time.Now())
			if err != nil {
				return err
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			if _, err := s.store.CreateCity(cmd.Context(), newCity); err != nil {
				return &reportedError{err: err}
			}
			return s.printer.cities(s.store.Snapshot().Cities)
		},
	}

	cmd.Flags().StringVar(&addOpts.Name, "name", "", "city name")
	cmd.Flags().StringVar(&addOpts.Country, "country", "", "country the city belongs to")
	cmd.Flags().StringVar(&addOpts.Emoji, "emoji", "", "country flag emoji")
	cmd.Flags().Float64Var(&addOpts.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&addOpts.Lng, "lng", 0, "longitude")
	cmd.Flags().StringVar(&addOpts.Date, "date", "", "visit date, YYYY-MM-DD or RFC 3339 (default today)")
	cmd.Flags().StringVar(&addOpts.Notes, "notes", "", "notes about the visit")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("country")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

// payload builds and validates the city to create. now is used when no
// date was given.
func (o *addOptions) payload(now time.Time) (types.NewCity, error) {
	date := now.UTC().Truncate(time.Second)
	if o.Date != "" {
		parsed, err := parseDate(o.Date)
		if err != nil {
			return types.NewCity{}, err
		}
		date = parsed
	}

	newCity := types.NewCity{
		CityName: o.Name,
		Country:  o.Country,
		Emoji:    o.Emoji,
		Date:     date,
		Notes:    o.Notes,
		Position: types.Position{Lat: o.Lat, Lng: o.Lng},
	}
	if err := newCity.Validate(); err != nil {
		return types.NewCity{}, err
	}
	return newCity, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a visited city",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid city id %q: %w", args[0], err)
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			if err := s.store.DeleteCity(cmd.Context(), id); err != nil {
				return &reportedError{err: err}
			}
			return s.printer.cities(s.store.Snapshot().Cities)
		},
	}
}
