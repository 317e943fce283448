package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tourcraft/tourcraft/internal/database"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/tourcraft/tourcraft/internal/relations"
)

func newRelationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Inspect the relation graph",
	}
	cmd.AddCommand(newRelationsValidateCmd())
	cmd.AddCommand(newRelationsCheckCmd())
	cmd.AddCommand(newRelationsIndexesCmd())
	return cmd
}

func newRelationsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the relation graph against the entity schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := relations.DefaultGraph().Validate(entity.DefaultRegistry())
			out := cmd.OutOrStdout()
			if flagJSON {
				if err := printJSON(out, rep); err != nil {
					return err
				}
			} else {
				for _, e := range rep.Errors {
					fmt.Fprintln(out, "ERROR  ", e)
				}
				for _, w := range rep.Warnings {
					fmt.Fprintln(out, "WARNING", w)
				}
				if rep.OK() {
					fmt.Fprintf(out, "relation graph OK (%d warning(s))\n", len(rep.Warnings))
				}
			}
			if !rep.OK() {
				return fmt.Errorf("relation graph has %d error(s)", len(rep.Errors))
			}
			return nil
		},
	}
}

func newRelationsIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "List the reference paths indexed for delete checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx := relations.DefaultGraph().IndexedFields()
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), idx)
			}
			for _, s := range entity.DefaultRegistry().All() {
				if paths := idx[s.Collection]; len(paths) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", s.Collection, strings.Join(paths, ", "))
				}
			}
			return nil
		},
	}
}

func newRelationsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <collection> <id>",
		Short: "Report whether an entity can be deleted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := entity.DefaultRegistry()
			if _, ok := reg.Lookup(args[0]); !ok {
				return fmt.Errorf("unknown collection %q", args[0])
			}
			if cfg.MongoDB.URI == "" {
				return errors.New("MONGODB_URI is required")
			}
			ctx := cmd.Context()
			client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(ctx) }()

			store := repository.NewMongoStore(client.Database(cfg.MongoDB.Database))
			checker := relations.NewChecker(store, reg, relations.DefaultGraph(), 4)
			v, err := checker.CanDelete(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printVerdict(cmd, args[0], args[1], v)
		},
	}
}

func printVerdict(cmd *cobra.Command, collection, id string, v relations.Verdict) error {
	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, v)
	}
	if v.Allowed {
		fmt.Fprintf(out, "%s/%s can be deleted\n", collection, id)
		return nil
	}
	fmt.Fprintf(out, "%s/%s is referenced:\n", collection, id)
	for _, b := range v.BlockingRelations {
		fmt.Fprintf(out, "  %s.%s  %d document(s)  %s\n", b.Collection, b.Field, b.Count, strings.Join(b.SampleLabels, ", "))
	}
	return nil
}
