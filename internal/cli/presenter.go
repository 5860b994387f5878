package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

// textPresenter renders session output as plain text.
type textPresenter struct {
	out io.Writer
}

func (p textPresenter) Alert(msg string) {
	_, _ = fmt.Fprintln(p.out, "!", msg)
}

func (p textPresenter) Loading(on bool) {
	if on {
		_, _ = fmt.Fprintln(p.out, "Searching...")
	}
}

func (p textPresenter) ShowBusinesses(businesses []models.Business) {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tPHONE\tWEBSITE\tEMAIL\tADDRESS")
	for _, b := range businesses {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.Name, b.DisplayPhone(), b.DisplayWebsite(), b.DisplayEmail(), b.FullAddress)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(p.out, "%d businesses\n", len(businesses))
}

func (p textPresenter) ShowNoResults(msg string) {
	_, _ = fmt.Fprintln(p.out, msg)
}

func (p textPresenter) ShowSuggestions(suggestions []string) {
	for _, s := range suggestions {
		_, _ = fmt.Fprintln(p.out, s)
	}
}

func (p textPresenter) CenterMap(loc models.Location) {
	_, _ = fmt.Fprintf(p.out, "%s\n%.6f,%.6f\n", loc.DisplayName, loc.Lat, loc.Lng)
}

// printRedirector prints the hosted checkout URL instead of opening it.
type printRedirector struct {
	out io.Writer
}

func (r printRedirector) Redirect(_ context.Context, sess models.CheckoutSession) error {
	if sess.URL == "" {
		return fmt.Errorf("checkout session %s has no redirect url", sess.ID)
	}
	_, _ = fmt.Fprintf(r.out, "Open %s to complete payment (session %s)\n", sess.URL, sess.ID)
	return nil
}
