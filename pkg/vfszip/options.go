package vfszip

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// Options are per-context settings, aggregated down through a chain of
// mounted sub-contexts (a flag set on a context or on any of its peers is
// set for the context).
type Options struct {
	// UseCopy extracts nested archives to a temp file instead of holding
	// them as in-memory streams.
	UseCopy bool
	// NoReaper closes FileSource descriptors synchronously on release
	// instead of deferring to the background reaper.
	NoReaper bool
	// CaseSensitive enables an extra case check on stat, for directory
	// contexts (recognized here for aggregation purposes; acted on by the
	// directory context, which is out of scope for this package).
	CaseSensitive bool
}

// merge returns the field-wise OR of o (the peer's options) and override
// (this context's own): a flag true in either is true in the result, and a
// false in override never clears a true from o.
func (o Options) merge(override Options) Options {
	return Options{
		UseCopy:       o.UseCopy || override.UseCopy,
		NoReaper:      o.NoReaper || override.NoReaper,
		CaseSensitive: o.CaseSensitive || override.CaseSensitive,
	}
}

// GlobalConfig is process-wide configuration, read once and treated as an
// immutable snapshot for the lifetime of the process (spec.md "Global
// state"). Tests may override it via SetGlobalConfigForTest.
type GlobalConfig struct {
	// ForceCopy overrides Options.UseCopy to true for every context.
	ForceCopy bool
	// ForceNoReaper overrides Options.NoReaper to true for every context.
	ForceNoReaper bool
	// ForceCaseSensitive is the process-wide form of Options.CaseSensitive.
	// It is read from the environment and exposed, but this package never
	// acts on it, as with Options.CaseSensitive.
	ForceCaseSensitive bool
	// ForceVfsJar would select a legacy jar handler for top-level archives
	// instead of this engine. Recognized for completeness; this package
	// never acts on it, since the handler it would select lives in the
	// plain-directory context, an external collaborator out of scope here.
	ForceVfsJar bool
	// ReaperGracePeriod is how long an idle FileSource descriptor is kept
	// open before the background reaper closes it.
	ReaperGracePeriod time.Duration
}

const defaultReaperGrace = 5 * time.Second

var (
	globalConfigOnce sync.Once
	globalConfig     GlobalConfig
	globalConfigMu   sync.RWMutex
)

func loadGlobalConfigOnce() {
	globalConfigOnce.Do(func() {
		globalConfigMu.Lock()
		defer globalConfigMu.Unlock()
		globalConfig = GlobalConfig{
			ForceCopy:          envBool("VFSZIP_FORCE_COPY"),
			ForceNoReaper:      envBool("VFSZIP_FORCE_NO_REAPER"),
			ForceCaseSensitive: envBool("VFSZIP_FORCE_CASE_SENSITIVE"),
			ForceVfsJar:        envBool("VFSZIP_FORCE_VFS_JAR"),
			ReaperGracePeriod:  defaultReaperGrace,
		}
	})
}

// CurrentGlobalConfig returns the process-wide configuration snapshot,
// loading it from the environment on first use.
func CurrentGlobalConfig() GlobalConfig {
	loadGlobalConfigOnce()
	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobalConfigForTest overrides the process-wide configuration snapshot.
// Intended for tests that need to exercise force-flags or a short reaper
// grace period without depending on process environment.
func SetGlobalConfigForTest(cfg GlobalConfig) (restore func()) {
	loadGlobalConfigOnce()
	globalConfigMu.Lock()
	prev := globalConfig
	globalConfig = cfg
	globalConfigMu.Unlock()
	return func() {
		globalConfigMu.Lock()
		globalConfig = prev
		globalConfigMu.Unlock()
	}
}

func envBool(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
