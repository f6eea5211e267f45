package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/kbstore"
)

func newKBCmd(a *app) *cobra.Command {
	kbCmd := &cobra.Command{
		Use:   "kb",
		Short: "Edit the statement store",
		Long: `The statement store keeps the asserted statements in sqlite together
with a journal of every effective edit. Other commands read it unless
--file is given.`,
	}

	withStore := func(fn func(cmd *cobra.Command, kb *kbstore.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			kb, err := a.openKB()
			if err != nil {
				return err
			}
			defer kb.Close()
			return fn(cmd, kb, args)
		}
	}

	kbCmd.AddCommand(&cobra.Command{
		Use:     "add STATEMENT...",
		Short:   "Add statements, e.g. 'SubClassOf(Cat Animal)'",
		Args:    cobra.MinimumNArgs(1),
		Example: `  pellet kb add 'SubClassOf(Cat Animal)' 'ClassAssertion(Cat tom)'`,
		RunE: withStore(func(cmd *cobra.Command, kb *kbstore.Store, args []string) error {
			stmts, err := parseStatements(args)
			if err != nil {
				return err
			}
			n, err := kb.Add(cmd.Context(), stmts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d\n", n)
			return nil
		}),
	})

	kbCmd.AddCommand(&cobra.Command{
		Use:   "remove STATEMENT...",
		Short: "Remove statements",
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, kb *kbstore.Store, args []string) error {
			stmts, err := parseStatements(args)
			if err != nil {
				return err
			}
			n, err := kb.Remove(cmd.Context(), stmts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", n)
			return nil
		}),
	})

	kbCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the stored statements in canonical order",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, kb *kbstore.Store, _ []string) error {
			stmts, err := kb.Statements(cmd.Context())
			if err != nil {
				return err
			}
			return axiom.Format(cmd.OutOrStdout(), stmts)
		}),
	})

	kbCmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Add every statement of a functional-syntax file ('-' for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, kb *kbstore.Store, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			n, err := kb.Import(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d\n", n)
			return nil
		}),
	})

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Print the edit journal",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, kb *kbstore.Store, _ []string) error {
			since, _ := cmd.Flags().GetInt64("since")
			changes, err := kb.Changes(cmd.Context(), since)
			if err != nil {
				return err
			}
			for _, c := range changes {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", c.Seq, c.At.Format(time.RFC3339), c.Op, c.Statement)
			}
			return nil
		}),
	}
	logCmd.Flags().Int64("since", 0, "Only entries after this sequence number")
	kbCmd.AddCommand(logCmd)

	return kbCmd
}
