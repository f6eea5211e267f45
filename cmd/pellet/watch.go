package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/classifier"
	"github.com/ThomasFarrenkopf/pellet/pkg/storage"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
	"github.com/ThomasFarrenkopf/pellet/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Keep the taxonomy of a statements file up to date as it is edited",
		Long: `Watch classifies FILE, then reclassifies every time the file is saved.
Each save is applied as one batch of additions and removals, so only the
part of the taxonomy the edit can affect is recomputed.

With --save the classified state is stored as a new snapshot version after
every reclassification. With metrics enabled, /metrics is served on the
configured address until the command exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd, args[0])
		},
	}
	cmd.Flags().Bool("print", false, "Print the taxonomy after every reclassification")
	cmd.Flags().String("save", "", "Store a snapshot under this name after every reclassification")
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a changed file is reloaded")
	return cmd
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, file string) error {
	printTree, _ := cmd.Flags().GetBool("print")
	saveAs, _ := cmd.Flags().GetString("save")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	out := cmd.OutOrStdout()

	ont, err := axiom.NewManager().CreateOntology("kb")
	if err != nil {
		return err
	}
	ccfg := a.classifierConfig()
	c, err := classifier.New(ont, ccfg)
	if err != nil {
		return err
	}
	defer c.Dispose()

	var store *storage.SnapshotStore
	if saveAs != "" {
		if store, err = a.openSnapshots(); err != nil {
			return err
		}
		defer store.Close()
	}

	update := func(changes []axiom.Change) error {
		if !ccfg.ListenChanges {
			c.OntologiesChanged(changes)
		}
		start := time.Now()
		if err := c.Classify(ctx); err != nil {
			return err
		}
		a.log.Info("classified", "changes", len(changes), "strategy", a.strategy(), "elapsed", time.Since(start))
		if printTree {
			if err := taxonomy.Print(out, c.Taxonomy()); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		if store != nil {
			info, err := store.Save(ctx, saveAs, c)
			if err != nil {
				return err
			}
			a.log.Info("snapshot saved", "name", info.Name, "version", info.Version)
		}
		return nil
	}

	w, err := watch.New(file, ont, watch.Options{
		Debounce: debounce,
		Logger:   a.log,
		Handler: func(r watch.Result) {
			if r.Err != nil || len(r.Changes) == 0 {
				return
			}
			if err := update(r.Changes); err != nil {
				a.log.Error("reclassification failed", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	changes, err := w.Reload()
	if err != nil {
		return err
	}
	if err := update(changes); err != nil {
		return err
	}
	if !printTree {
		if err := taxonomy.Print(out, c.Taxonomy()); err != nil {
			return err
		}
	}

	if a.cfg.Metrics.Enabled && a.cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              a.cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.log.Info("serving metrics", "addr", a.cfg.Metrics.Addr)
	}

	a.log.Info("watching", "file", w.Path())
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
