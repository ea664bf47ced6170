package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/accountbilling/pkg/config"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/pkg/mongo"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/tax"
)

func newRootCmd() *cobra.Command {
	var (
		plansPath string
		taxesPath string
		dryRun    bool
	)

	rootCmd := &cobra.Command{
		Use:          "seed",
		Short:        "Upsert billing plans and tax rates into MongoDB",
		Long:         "seed reads a plan catalogue and a list of tax rates from YAML and upserts them by id. Either file may be omitted.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New(logger.WithEnvironment(os.Getenv("APP_ENV"), "seed"))

			c, err := loadCatalogue(plansPath, taxesPath)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d plans, %d tax rates are valid\n", len(c.plans), len(c.rates))
				return nil
			}

			var cfg mongo.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := mongo.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()
			db := client.Database(cfg.Database)

			return c.apply(ctx, account.NewMongoPlans(db), tax.NewMongoSource(db), log)
		},
	}

	rootCmd.Flags().StringVar(&plansPath, "plans", "plans.yaml", "plan catalogue file, empty to skip")
	rootCmd.Flags().StringVar(&taxesPath, "taxes", "taxes.yaml", "tax rate file, empty to skip")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the files without writing")

	return rootCmd
}

func loadCatalogue(plansPath, taxesPath string) (catalogue, error) {
	var c catalogue
	if plansPath != "" {
		f, err := os.Open(plansPath)
		if err != nil {
			return c, err
		}
		defer f.Close()
		if c.plans, err = decodePlans(f); err != nil {
			return c, fmt.Errorf("%s: %w", plansPath, err)
		}
	}
	if taxesPath != "" {
		f, err := os.Open(taxesPath)
		if err != nil {
			return c, err
		}
		defer f.Close()
		if c.rates, err = decodeRates(f); err != nil {
			return c, fmt.Errorf("%s: %w", taxesPath, err)
		}
	}
	return c, nil
}
