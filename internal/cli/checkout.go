package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/client"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

func newCheckoutCmd() *cobra.Command {
	var (
		apiURL string
		userID string
		token  string
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Start a checkout session to buy more searches",
		Args:  cobra.NoArgs,
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

			if apiURL == "" {
				apiURL = "http://localhost:" + cfg.Port
			}
			if token == "" {
				token = os.Getenv("MAPSEARCH_ID_TOKEN")
			}
			out := cmd.OutOrStdout()
			sess, err := client.NewSession(client.Config{
				Quota:      store,
				Checkout:   client.NewHTTPCheckout(apiURL, nil),
				Redirector: printRedirector{out: out},
				Presenter:  textPresenter{out: out},
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			var user *models.User
			if userID != "" {
				user = &models.User{ID: userID, IDToken: token}
			}
			return dispatchAll(cmd, sess, []client.Event{
				client.AuthStateChanged{User: user},
				client.PaymentRequested{},
			})
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "", "API base URL (default http://localhost:$PORT)")
	cmd.Flags().StringVar(&userID, "user", "", "signed-in user id")
	cmd.Flags().StringVar(&token, "token", "", "Firebase ID token (default $MAPSEARCH_ID_TOKEN)")
	return cmd
}
