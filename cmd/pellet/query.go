package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/classifier"
)

// queryFunc answers one query against a classified knowledge base.
type queryFunc func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, direct bool) error

func newQueryCmd(a *app) *cobra.Command {
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Ask the classified knowledge base",
		Long: `Query classifies the knowledge base (or restores it from --snapshot) and
answers one question. Classes may be named or written as functional-syntax
expressions, for example 'ObjectComplementOf(Cat)'.`,
	}
	queryCmd.PersistentFlags().Bool("direct", false, "Only direct answers")
	queryCmd.PersistentFlags().String("snapshot", "", "Start from a stored snapshot")

	add := func(use, short string, nargs int, fn queryFunc) {
		queryCmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				direct, _ := cmd.Flags().GetBool("direct")
				snapshot, _ := cmd.Flags().GetString("snapshot")
				c, err := a.classify(cmd.Context(), "", snapshot)
				if err != nil {
					return err
				}
				defer c.Dispose()
				return fn(cmd.Context(), cmd, c, args, direct)
			},
		})
	}

	add("sub CLASS", "Subclasses, as equivalence sets", 1,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, direct bool) error {
			ce, err := axiom.ParseClassExpression(args[0])
			if err != nil {
				return err
			}
			sets, err := c.SubClasses(ctx, ce, direct)
			if err != nil {
				return err
			}
			printSets(cmd.OutOrStdout(), sets)
			return nil
		})

	add("super CLASS", "Superclasses, as equivalence sets", 1,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, direct bool) error {
			ce, err := axiom.ParseClassExpression(args[0])
			if err != nil {
				return err
			}
			sets, err := c.SuperClasses(ctx, ce, direct)
			if err != nil {
				return err
			}
			printSets(cmd.OutOrStdout(), sets)
			return nil
		})

	add("equiv CLASS", "Classes equivalent to CLASS", 1,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, _ bool) error {
			ce, err := axiom.ParseClassExpression(args[0])
			if err != nil {
				return err
			}
			eq, err := c.EquivalentClasses(ctx, ce)
			if err != nil {
				return err
			}
			printIRIs(cmd.OutOrStdout(), eq)
			return nil
		})

	add("instances CLASS", "Individuals of CLASS", 1,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, direct bool) error {
			ce, err := axiom.ParseClassExpression(args[0])
			if err != nil {
				return err
			}
			inds, err := c.Instances(ctx, ce, direct)
			if err != nil {
				return err
			}
			printIRIs(cmd.OutOrStdout(), inds)
			return nil
		})

	add("types INDIVIDUAL", "Classes of an individual, as equivalence sets", 1,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, direct bool) error {
			sets, err := c.Types(ctx, axiom.IRI(args[0]), direct)
			if err != nil {
				return err
			}
			printSets(cmd.OutOrStdout(), sets)
			return nil
		})

	add("disjoint CLASS", "Classes disjoint with CLASS, as equivalence sets", 1,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, direct bool) error {
			ce, err := axiom.ParseClassExpression(args[0])
			if err != nil {
				return err
			}
			sets, err := c.DisjointClasses(ctx, ce, direct)
			if err != nil {
				return err
			}
			printSets(cmd.OutOrStdout(), sets)
			return nil
		})

	add("unsat", "Unsatisfiable classes", 0,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, _ []string, _ bool) error {
			classes, err := c.UnsatisfiableClasses(ctx)
			if err != nil {
				return err
			}
			printIRIs(cmd.OutOrStdout(), classes)
			return nil
		})

	add("entailed STATEMENT", "Whether a statement follows from the knowledge base", 1,
		func(ctx context.Context, cmd *cobra.Command, c *classifier.Classifier, args []string, _ bool) error {
			st, err := axiom.Parse(args[0])
			if err != nil {
				return err
			}
			ok, err := c.IsEntailed(ctx, st)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		})

	return queryCmd
}
