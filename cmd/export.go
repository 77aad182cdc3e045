package main

import (
	"encoding/json"
	"fmt"
	"io"

	repository "github.com/okian/cragboard/internal/adapters/repository"
	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/internal/domain/types"
	"github.com/spf13/cobra"
)

// Export formats.
const (
	formatCSV  = "csv"
	formatJSON = "json"
)

func newExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored result to stdout",
		Long: "Reads the configured result store and writes all results in submission order,\n" +
			"either as CSV in the persisted column layout or as the /results.json array.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := setup(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			terms := model.NewTerminology(cfg.MilestoneLabel)
			store, err := openStore(cfg, terms, log)
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := store.ListAll(ctx)
			if err != nil {
				return fmt.Errorf("list results: %w", err)
			}
			return export(cmd.OutOrStdout(), format, terms, results)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatCSV, "output format: csv or json")
	return cmd
}

func export(w io.Writer, format string, terms model.Terminology, results []model.Result) error {
	switch format {
	case formatCSV:
		return repository.WriteCSV(w, terms, results)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(types.ResultRecords(terms, results))
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
