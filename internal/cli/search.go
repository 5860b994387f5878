package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaupham1092/lcalbizfinder/app/config"
	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/client"
	"github.com/chaupham1092/lcalbizfinder/geocode"
	"github.com/chaupham1092/lcalbizfinder/localbiz"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

func newSearchCmd() *cobra.Command {
	var (
		userID string
		query  string
		pins   []string
		radius int
	)
	cmd := &cobra.Command{
		Use:     "search",
		Short:   "Search businesses around one or more pins, charging one search",
		Example: `  mapsearch search --user u1 --query plumbers --pin 40.71,-74.00 --pin 40.75,-73.98,500`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			store, err := quota.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := newSession(cfg, logger, store, cmd)
			if err != nil {
				return err
			}

			events := []client.Event{client.AuthStateChanged{User: &models.User{ID: userID}}}
			if radius != 0 {
				events = append(events, client.RadiusChanged{Meters: radius})
			}
			for _, raw := range pins {
				pin, err := parsePin(raw)
				if err != nil {
					return err
				}
				events = append(events, client.PinPlaced{Pin: pin})
			}
			events = append(events, client.QueryChanged{Text: query}, client.SearchRequested{})
			return dispatchAll(cmd, sess, events)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id whose quota is charged")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search term, e.g. restaurants")
	cmd.Flags().StringArrayVar(&pins, "pin", nil, "pin as lat,lng[,radius]; repeatable")
	cmd.Flags().IntVar(&radius, "radius", 0, "radius in meters for pins given without one")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <text>",
		Short: "Print search term suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			sess, err := newSession(cfg, logger, quota.NewMemoryStore(), cmd)
			if err != nil {
				return err
			}
			return dispatchAll(cmd, sess, []client.Event{client.QueryChanged{Text: strings.Join(args, " ")}})
		},
	}
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <place>",
		Short: "Resolve a place name to coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			sess, err := newSession(cfg, logger, quota.NewMemoryStore(), cmd)
			if err != nil {
				return err
			}
			return dispatchAll(cmd, sess, []client.Event{client.LocationRequested{Place: strings.Join(args, " ")}})
		},
	}
}

// newSession builds a client session writing to the command's stdout.
func newSession(cfg *config.Config, logger *slog.Logger, store client.QuotaStore, cmd *cobra.Command) (*client.Session, error) {
	out := cmd.OutOrStdout()
	return client.NewSession(client.Config{
		Quota:      store,
		Businesses: localbiz.New(cfg.LocalBiz.BaseURL, cfg.LocalBiz.APIKey, localbiz.WithLogger(logger)),
		Geocoder:   geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent),
		Redirector: printRedirector{out: out},
		Presenter:  textPresenter{out: out},
		Timeout:    cfg.Search.Timeout,
		Logger:     logger,
	})
}

func dispatchAll(cmd *cobra.Command, sess *client.Session, events []client.Event) error {
	ctx := commandContext(cmd)
	for _, ev := range events {
		if err := sess.Dispatch(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// parsePin reads "lat,lng" or "lat,lng,radius".
func parsePin(raw string) (models.Pin, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return models.Pin{}, fmt.Errorf("pin %q: want lat,lng[,radius]", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Pin{}, fmt.Errorf("pin %q: bad latitude: %w", raw, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Pin{}, fmt.Errorf("pin %q: bad longitude: %w", raw, err)
	}
	pin := models.Pin{Lat: lat, Lng: lng}
	if len(parts) == 3 {
		if pin.Radius, err = strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
			return models.Pin{}, fmt.Errorf("pin %q: bad radius: %w", raw, err)
		}
	}
	return pin, nil
}
