package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
)

var (
	initWaterData string
	initSamples   int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and seed default accounts and locations",
	Long: `Migrates the schema, creates the default admin/user accounts and ranch
locations, and fills an empty observation table from --water-data or,
failing that, with --samples days of generated readings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := openStore()
		if err != nil {
			return err
		}
		defer env.Close()

		seeder := repository.NewSeedRepository(env.DB, service.HashPassword)
		result, err := seeder.SeedDefaults(ctx)
		if err != nil {
			return eris.Wrap(err, "seed defaults")
		}
		logger.Info("defaults seeded", "users", result.Users, "locations", result.Locations)

		empty, err := seeder.WaterQualityEmpty(ctx)
		if err != nil {
			return eris.Wrap(err, "check observations")
		}
		if !empty {
			logger.Info("observations already present, skipping data load")
			return nil
		}

		if initWaterData != "" {
			report, err := env.pipeline().Run(ctx, initWaterData)
			if err != nil {
				return eris.Wrapf(err, "import %s", initWaterData)
			}
			logger.Info("water data imported",
				"files", report.FilesProcessed,
				"rows_inserted", report.RowsInserted,
				"rows_skipped", report.RowsSkipped,
			)
			if report.RowsInserted > 0 {
				return nil
			}
		}

		if initSamples > 0 {
			n, err := seeder.SeedSamples(ctx, time.Now().UTC(), initSamples)
			if err != nil {
				return eris.Wrap(err, "seed samples")
			}
			logger.Info("sample observations generated", "rows", n, "days", initSamples)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initWaterData, "water-data", "", "directory of exports to import when the store is empty")
	initCmd.Flags().IntVar(&initSamples, "samples", 0, "days of generated sample readings when nothing was imported")
	rootCmd.AddCommand(initCmd)
}
