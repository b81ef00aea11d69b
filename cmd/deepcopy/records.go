package main

import (
	"encoding/json"
	"fmt"
	"os"

	"deepcopy/pkg/domain"

	"github.com/spf13/cobra"
)

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON array of records in one transaction",
		Long: `Import reads a JSON array of records ({"type", "id", "attributes"}) and
creates them in a single transaction. Identifiers present in the file are kept
so foreign keys between imported records stay valid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) // #nosec G304 -- operator supplied path
			if err != nil {
				return err
			}
			var records []domain.Record
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			created, res, err := a.svc.ImportRecords(cmd.Context(), records)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"imported":   len(created),
				"violations": res.Violations,
			})
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list TYPE",
		Short: "List records of a type in insertion order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records := a.svc.ListRecords(domain.RecordType(args[0]))
			if records == nil {
				records = []domain.Record{}
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
}

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TYPE ID",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.svc.GetRecord(domain.RecordType(args[0]), args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}
