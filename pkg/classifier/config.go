package classifier

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThomasFarrenkopf/pellet/pkg/metrics"
	"github.com/ThomasFarrenkopf/pellet/pkg/modularity"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
)

// Config holds the classifier settings.
type Config struct {
	// Factory creates the shared base reasoner and the private reasoner of
	// every incremental update. Required.
	Factory reasoner.Factory

	// Extractor tracks modules. Defaults to a bottom-locality extractor.
	Extractor modularity.Extractor

	// MultiThreaded runs the two units of a full classification, hierarchy
	// and module extraction, concurrently.
	MultiThreaded bool

	// ListenChanges subscribes to the ontology manager's change feed. When
	// false, changes must be passed to OntologiesChanged.
	ListenChanges bool

	// MaxComplementRetries bounds the attempts to draw an unused identifier
	// for the complement of an anonymous expression.
	MaxComplementRetries int

	// EntailmentCacheSize and EntailmentCacheTTL size the cache of
	// terminological entailment answers. A size of 0 disables caching.
	EntailmentCacheSize int
	EntailmentCacheTTL  time.Duration

	Logger *slog.Logger
	Timers *metrics.Timers
}

// DefaultConfig returns the default settings. The caller sets Factory.
func DefaultConfig() Config {
	return Config{
		MultiThreaded:        true,
		ListenChanges:        true,
		MaxComplementRetries: 16,
		EntailmentCacheSize:  10000,
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.Factory == nil {
		return c, fmt.Errorf("%w: no reasoner factory", ErrIllegalConfiguration)
	}
	if c.MaxComplementRetries < 0 || c.EntailmentCacheSize < 0 || c.EntailmentCacheTTL < 0 {
		return c, fmt.Errorf("%w: negative limit", ErrIllegalConfiguration)
	}
	if c.MaxComplementRetries == 0 {
		c.MaxComplementRetries = 16
	}
	if c.Extractor == nil {
		c.Extractor = modularity.NewBottomExtractor()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Timers == nil {
		c.Timers = metrics.NewTimers(nil, "")
	}
	return c, nil
}
