package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ThomasFarrenkopf/pellet/pkg/storage"
)

func newSnapshotCmd(a *app) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore classified state",
	}

	nameArg := func(args []string) string {
		if len(args) == 1 {
			return args[0]
		}
		return a.cfg.Storage.SnapshotName
	}

	saveCmd := &cobra.Command{
		Use:   "save [NAME]",
		Short: "Classify the knowledge base and store the result as the next version of NAME",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			realize, _ := cmd.Flags().GetBool("realize")

			c, err := a.classify(ctx, "", "")
			if err != nil {
				return err
			}
			defer c.Dispose()
			if realize {
				if err := c.Realize(ctx); err != nil {
					return err
				}
			}

			store, err := a.openSnapshots()
			if err != nil {
				return err
			}
			defer store.Close()
			info, err := store.Save(ctx, nameArg(args), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s@%d %s (%d bytes)\n", info.Name, info.Version, info.Digest[:12], info.Size)
			return nil
		},
	}
	saveCmd.Flags().Bool("realize", false, "Realize before saving")
	snapshotCmd.AddCommand(saveCmd)

	loadCmd := &cobra.Command{
		Use:   "load [NAME]",
		Short: "Restore NAME over the current knowledge base and bring it up to date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			version, _ := cmd.Flags().GetUint64("version")

			ont, err := a.loadOntology(ctx, "")
			if err != nil {
				return err
			}
			store, err := a.openSnapshots()
			if err != nil {
				return err
			}
			defer store.Close()

			c, info, err := store.Load(ctx, nameArg(args), version, ont, a.classifierConfig())
			if err != nil {
				return err
			}
			defer c.Dispose()
			if err := c.Classify(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s@%d, classification: %s\n", info.Name, info.Version, a.strategy())
			return nil
		},
	}
	loadCmd.Flags().Uint64("version", 0, "Version to restore (0 = latest)")
	snapshotCmd.AddCommand(loadCmd)

	snapshotCmd.AddCommand(&cobra.Command{
		Use:   "list [NAME]",
		Short: "List stored snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSnapshots()
			if err != nil {
				return err
			}
			defer store.Close()

			var infos []storage.SnapshotInfo
			if len(args) == 1 {
				infos, err = store.Versions(cmd.Context(), args[0])
			} else {
				infos, err = store.List(cmd.Context())
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVERSION\tDIGEST\tSIZE\tCREATED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n",
					info.Name, info.Version, info.Digest[:12], info.Size, info.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	})

	snapshotCmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete every version of NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSnapshots()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})

	return snapshotCmd
}
