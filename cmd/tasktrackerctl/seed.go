package main

import (
	"fmt"

	"tasktracker/internal/errors"
	"tasktracker/internal/infra/auth"
	"tasktracker/internal/infra/persistence/database"
	"tasktracker/internal/usecase"
	"tasktracker/internal/usecase/impl"

	"github.com/spf13/cobra"
)

func newSeedCmd(load configLoader) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision an account if it does not exist",
		Long: `Provision an account with the given credentials. An existing account with
the same email is left untouched, so the command can run on every deploy.

Defaults come from seed.adminEmail and seed.adminPassword.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			if email == "" && cfg.Seed != nil {
				email = cfg.Seed.AdminEmail
			}
			if password == "" && cfg.Seed != nil {
				password = cfg.Seed.AdminPassword
			}
			if email == "" || password == "" {
				return errors.New("both --email and --password are required")
			}

			db, logger, closeFn, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			// Provisioning never issues tokens, so no signing secret is needed.
			accounts, err := impl.NewAccountService(impl.AccountServiceParams{
				UserRepo: database.NewUserRepository(db),
				Hasher:   auth.NewBcryptHasher(cfg),
				Config:   cfg,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			user, created, err := accounts.Provision(cmd.Context(), &usecase.RegisterInput{
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created account %s (%s)\n", user.Email, user.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "account %s already exists (%s)\n", user.Email, user.ID)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (defaults to seed.adminEmail)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (defaults to seed.adminPassword)")

	return cmd
}
