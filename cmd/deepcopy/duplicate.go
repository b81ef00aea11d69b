package main

import (
	"errors"
	"fmt"

	"deepcopy/pkg/domain"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type duplicateOutput struct {
	Root       domain.Record             `json:"root"`
	Entries    []domain.DuplicationEntry `json:"entries"`
	Failures   []string                  `json:"failures,omitempty"`
	Violations []domain.Violation        `json:"violations,omitempty"`
}

func (a *app) duplicateCommand() *cobra.Command {
	var (
		include  []string
		exclude  []string
		set      map[string]string
		validate bool
		abort    bool
	)
	cmd := &cobra.Command{
		Use:   "duplicate TYPE ID",
		Short: "Deep-copy a record and the records it owns",
		Long: `Duplicate copies the record and, recursively, every record reachable through
its duplicable has_one and has_many relationships. Foreign keys on the copies
point at the new parents. --include and --exclude select the relationships of
the root record; --set overrides attributes of the root copy.

When a copy fails to save, its subtree is skipped and the remaining copies are
committed; the command then prints the partial result and exits non-zero.
--abort-on-failure rolls the whole duplication back instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseOverrides(set)
			if err != nil {
				return err
			}
			opts := domain.DuplicateOptions{
				AttributeOverrides: overrides,
				Include:            include,
				Exclude:            exclude,
				Validate:           validate,
			}
			if abort {
				opts.FailurePolicy = domain.FailureAbort
			}
			dup, res, dupErr := a.svc.DuplicateRecord(cmd.Context(), domain.RecordType(args[0]), args[1], opts)
			var partial *domain.PartialDuplicationError
			if dupErr != nil && !errors.As(dupErr, &partial) {
				return dupErr
			}
			out := duplicateOutput{Entries: dup.Entries, Violations: res.Violations}
			out.Root, _ = dup.Root()
			for _, f := range dup.Failures {
				out.Failures = append(out.Failures, f.Error())
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return dupErr
		},
	}
	flags := cmd.Flags()
	flags.StringSliceVar(&include, "include", nil, "relationships of the root to copy (wins over --exclude)")
	flags.StringSliceVar(&exclude, "exclude", nil, "relationships of the root to skip")
	flags.StringToStringVar(&set, "set", nil, "attribute overrides for the root copy, key=value (values parsed as YAML scalars)")
	flags.BoolVar(&validate, "validate", false, "run validation rules on every copy")
	flags.BoolVar(&abort, "abort-on-failure", false, "roll back everything when any copy fails")
	return cmd
}

// parseOverrides decodes each value as a YAML scalar so "true" and "3" keep
// their types.
func parseOverrides(set map[string]string) (domain.Attributes, error) {
	if len(set) == 0 {
		return nil, nil
	}
	attrs := make(domain.Attributes, len(set))
	for k, raw := range set {
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("--set %s: %w", k, err)
		}
		if v == nil {
			v = raw
		}
		attrs[k] = v
	}
	return attrs, nil
}

func (a *app) manifestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest TYPE ID",
		Short: "Print the archived manifest of a root copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.svc.Manifest(cmd.Context(), domain.RecordRef{Type: domain.RecordType(args[0]), ID: args[1]})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), m)
		},
	}
}
