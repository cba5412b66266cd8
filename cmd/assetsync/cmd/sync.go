package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/ferrumhealth/assetsync/internal/config"
	"github.com/ferrumhealth/assetsync/pkg/clean"
	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/inventory"
	"github.com/ferrumhealth/assetsync/pkg/logging"
	"github.com/ferrumhealth/assetsync/pkg/reconcile"
	"github.com/ferrumhealth/assetsync/pkg/snipe"
)

// candidateFile is the YAML batch format: a source label applied to every
// candidate that does not set its own, and the candidates themselves.
type candidateFile struct {
	Source     string                `yaml:"source"`
	Candidates []reconcile.Candidate `yaml:"candidates"`
}

func newSyncCmd() *cobra.Command {
	var file string

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile a batch of candidate records",
		Long: `Reads candidate hardware observations from a YAML file, resolves each
against the asset-of-record service, and creates or updates records as
needed. Candidates with data problems are skipped and reported; transport
failures abort the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			candidates, err := loadCandidates(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logging.Ctx(ctx).Info().
				Str("file", file).
				Int("candidates", len(candidates)).
				Msg("Starting reconciliation")

			result, err := buildReconciler(cfg).Run(ctx, candidates)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"created %d, updated %d, unchanged %d, skipped %d (of %d)\n",
					result.Created, result.Updated, result.Unchanged, result.Skipped, result.Total())
			}
			return err
		},
	}

	syncCmd.Flags().StringVarP(&file, "file", "f", "candidates.yaml", "YAML file of candidate records")
	return syncCmd
}

func loadCandidates(path string) ([]reconcile.Candidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("sync", "reading "+path, err)
	}

	var batch candidateFile
	if err := yaml.Unmarshal(raw, &batch); err != nil {
		return nil, errors.NewConfigError("sync", "parsing "+path, err)
	}

	for i := range batch.Candidates {
		if batch.Candidates[i].Source == "" {
			batch.Candidates[i].Source = batch.Source
		}
	}
	return batch.Candidates, nil
}

func buildReconciler(cfg *config.Config) *reconcile.Reconciler {
	api := snipe.New(cfg.BaseURL, cfg.APIToken,
		snipe.WithPageSize(cfg.PageSize),
		snipe.WithBackoffBase(cfg.BackoffBase),
		snipe.WithRequestRate(cfg.RequestRate),
		snipe.WithCacheTTL(cfg.CacheTTL),
	)
	session := inventory.NewSession(api, inventory.WithMACSlots(cfg.MACSlots))

	opts := []reconcile.Option{
		reconcile.WithStatusIDs(cfg.StatusIDs),
		reconcile.WithDefaultModel(cfg.DefaultModelID),
		reconcile.WithDefaultCategory(cfg.DefaultCategoryID),
		reconcile.WithDefaultFieldset(cfg.DefaultFieldsetID),
		reconcile.WithDefaultManufacturer(cfg.DefaultManufacturerID),
	}
	if cfg.OUTableFile != "" {
		if table, err := clean.LoadOUTable(cfg.OUTableFile); err != nil {
			logging.Warn().Err(err).Str("file", cfg.OUTableFile).Msg("Ignoring unreadable OU table")
		} else {
			opts = append(opts, reconcile.WithOUTable(table))
		}
	}

	return reconcile.New(session, opts...)
}
