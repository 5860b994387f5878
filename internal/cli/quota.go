package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

func newQuotaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect and adjust stored search quotas",
	}
	cmd.AddCommand(newQuotaGetCmd())
	cmd.AddCommand(newQuotaGrantCmd())
	cmd.AddCommand(newQuotaProvisionCmd())
	return cmd
}

// withStore opens the configured quota store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(quota.Store) error) error {
	cfg, _, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	store, err := quota.Open(commandContext(cmd), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newQuotaGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id>",
		Short: "Print a user's remaining searches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s quota.Store) error {
				rec, err := s.Get(commandContext(cmd), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", rec.UserID, rec.SearchesRemaining)
				return nil
			})
		},
	}
}

func newQuotaGrantCmd() *cobra.Command {
	var value int
	cmd := &cobra.Command{
		Use:   "grant <user-id>",
		Short: "Reset a user's remaining searches, as a completed payment does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if value < 0 {
				return fmt.Errorf("--value must not be negative")
			}
			return withStore(cmd, func(s quota.Store) error {
				if err := s.Grant(commandContext(cmd), args[0], value); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", args[0], value)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&value, "value", models.GrantSearches, "searches to set")
	return cmd
}

func newQuotaProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision <user-id>",
		Short: "Create a user's quota record if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s quota.Store) error {
				created, err := s.Provision(commandContext(cmd), args[0], models.DefaultSearches)
				if err != nil {
					return err
				}
				state := "exists"
				if created {
					state = "created"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], state)
				return nil
			})
		},
	}
}
