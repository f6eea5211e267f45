package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/classifier"
	"github.com/ThomasFarrenkopf/pellet/pkg/config"
	"github.com/ThomasFarrenkopf/pellet/pkg/kbstore"
	"github.com/ThomasFarrenkopf/pellet/pkg/metrics"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner/told"
	"github.com/ThomasFarrenkopf/pellet/pkg/storage"
)

// app carries what every command shares once flags are parsed.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	closeLog func() error
	registry *prometheus.Registry
	timers   *metrics.Timers
}

// setup resolves the configuration (defaults, then --config, then PELLET_*
// variables, then flags) and builds the logger and timers.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	cfg.Memory.ApplyRuntimeMemory()
	if cfg.Memory.RuntimeLimit > 0 {
		logger.Debug("runtime memory limit set", "limit", config.FormatMemorySize(cfg.Memory.RuntimeLimit))
	}

	a.cfg = cfg
	a.log = logger
	a.closeLog = closeLog
	a.registry = prometheus.NewRegistry()
	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg = a.registry
	}
	a.timers = metrics.NewTimers(reg, cfg.Metrics.Namespace)

	a.log.Debug("configuration loaded", "config", cfg.String())
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.KnowledgeBase.File, _ = flags.GetString("file")
	}
	if flags.Changed("kb") {
		cfg.KnowledgeBase.Path, _ = flags.GetString("kb")
		cfg.KnowledgeBase.File = ""
	}
	if flags.Changed("data-dir") {
		cfg.Storage.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("in-memory") {
		cfg.Storage.InMemory, _ = flags.GetBool("in-memory")
	}
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		cfg.Logging.Level = strings.ToUpper(level)
	}
	if flags.Changed("single-threaded") {
		single, _ := flags.GetBool("single-threaded")
		cfg.Classifier.MultiThreaded = !single
	}
}

func (a *app) teardown() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

func (a *app) classifierConfig() classifier.Config {
	cfg := classifier.DefaultConfig()
	cfg.Factory = told.Factory()
	cfg.MultiThreaded = a.cfg.Classifier.MultiThreaded
	cfg.ListenChanges = a.cfg.Classifier.ListenChanges
	cfg.MaxComplementRetries = a.cfg.Classifier.MaxComplementRetries
	cfg.EntailmentCacheSize = a.cfg.Classifier.EntailmentCacheSize
	cfg.EntailmentCacheTTL = a.cfg.Classifier.EntailmentCacheTTL
	cfg.Logger = a.log
	cfg.Timers = a.timers
	return cfg
}

// openKB opens the statement store, creating its directory.
func (a *app) openKB() (*kbstore.Store, error) {
	path := a.cfg.KnowledgeBase.Path
	if path == "" {
		return nil, fmt.Errorf("no statement store configured (use --kb)")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating statement store directory: %w", err)
	}
	return kbstore.Open(path)
}

func (a *app) openSnapshots() (*storage.SnapshotStore, error) {
	return storage.Open(storage.Options{
		DataDir:    a.cfg.Storage.DataDir,
		InMemory:   a.cfg.Storage.InMemory,
		SyncWrites: a.cfg.Storage.SyncWrites,
		Logger:     a.log,
	})
}

// loadOntology reads the knowledge base into a fresh ontology: file when
// given, else the configured statements file, else the statement store.
func (a *app) loadOntology(ctx context.Context, file string) (*axiom.Ontology, error) {
	ont, err := axiom.NewManager().CreateOntology("kb")
	if err != nil {
		return nil, err
	}
	if file == "" {
		file = a.cfg.KnowledgeBase.File
	}
	if file != "" {
		stmts, err := readStatements(file)
		if err != nil {
			return nil, err
		}
		ont.Add(stmts...)
		a.log.Debug("knowledge base read", "file", file, "statements", ont.Len())
		return ont, nil
	}

	kb, err := a.openKB()
	if err != nil {
		return nil, err
	}
	defer kb.Close()
	if _, err := kb.Sync(ctx, ont); err != nil {
		return nil, err
	}
	a.log.Debug("knowledge base read", "store", a.cfg.KnowledgeBase.Path, "statements", ont.Len())
	return ont, nil
}

// classify builds a classifier over the knowledge base. With a snapshot
// name, the classifier is restored from the snapshot store and brought up
// to date incrementally; otherwise it is classified from scratch.
func (a *app) classify(ctx context.Context, file, snapshot string) (*classifier.Classifier, error) {
	ont, err := a.loadOntology(ctx, file)
	if err != nil {
		return nil, err
	}

	var c *classifier.Classifier
	if snapshot != "" {
		store, err := a.openSnapshots()
		if err != nil {
			return nil, err
		}
		defer store.Close()
		var info storage.SnapshotInfo
		c, info, err = store.Load(ctx, snapshot, 0, ont, a.classifierConfig())
		if err != nil {
			return nil, fmt.Errorf("loading snapshot %s: %w", snapshot, err)
		}
		a.log.Info("snapshot restored", "name", info.Name, "version", info.Version)
	} else {
		c, err = classifier.New(ont, a.classifierConfig())
		if err != nil {
			return nil, err
		}
	}

	if err := c.Classify(ctx); err != nil {
		c.Dispose()
		return nil, err
	}
	a.logTimers()
	return c, nil
}

// strategy names the classification strategies recorded so far.
func (a *app) strategy() string {
	var used []string
	for _, s := range []string{metrics.StrategyFull, metrics.StrategyIncremental, metrics.StrategyBookkeeping} {
		if n := a.timers.Classifications(s); n > 0 {
			used = append(used, fmt.Sprintf("%s=%d", s, n))
		}
	}
	if len(used) == 0 {
		return "none"
	}
	return strings.Join(used, " ")
}

func (a *app) logTimers() {
	for _, name := range a.timers.Names() {
		a.log.Debug("phase timer", "phase", name, "total", a.timers.Total(name), "count", a.timers.Count(name))
	}
}

// readStatements parses a functional-syntax file; "-" reads stdin.
func readStatements(path string) ([]axiom.Statement, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	stmts, err := axiom.ParseDocument(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stmts, nil
}

func parseStatements(args []string) ([]axiom.Statement, error) {
	stmts := make([]axiom.Statement, 0, len(args))
	for _, arg := range args {
		st, err := axiom.Parse(arg)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

func printIRIs(w io.Writer, iris []axiom.IRI) {
	for _, iri := range iris {
		fmt.Fprintln(w, iri.String())
	}
}

// printSets writes one equivalence set per line, members joined by " = ".
func printSets(w io.Writer, sets [][]axiom.IRI) {
	for _, set := range sets {
		fmt.Fprintln(w, joinIRIs(set))
	}
}

func joinIRIs(iris []axiom.IRI) string {
	parts := make([]string, len(iris))
	for i, iri := range iris {
		parts[i] = iri.String()
	}
	return strings.Join(parts, " = ")
}
