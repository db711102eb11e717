package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront-preview/previewkit/internal/seed"
)

var seedFixtures string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load YAML demo fixtures into the store",
	Long: `Load a YAML fixture bundle (tenants, themes, entities) into the
configured store. With a memory store this only makes sense combined
with serve; point store.driver at sqlite to persist fixtures across
runs.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedFixtures, "fixtures", "", "fixture bundle to load (YAML)")
	_ = seedCmd.MarkFlagRequired("fixtures")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	bundle, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fixtures, err := seed.LoadFile(seedFixtures)
	if err != nil {
		return err
	}
	if err := seed.Apply(cmd.Context(), bundle, fixtures, logger); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d themes, %d tenants, %d entities\n",
		len(fixtures.Themes), len(fixtures.Tenants), len(fixtures.Entities))
	return nil
}
