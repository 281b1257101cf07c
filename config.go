package bard

import "os"

// Environment variable names consulted by ConfigFromEnv.
const (
	EnvDisableControl = "POET_DISABLE_CONTROL"
	EnvDisableApply   = "POET_DISABLE_APPLY"
	EnvDisableIdle    = "POET_DISABLE_IDLE"
)

// Config holds the three runtime kill switches the original consults as
// environment variables on every call. This port reads them once (at
// New, or via WithConfig) into this struct instead of calling os.Getenv
// from inside ApplyControl, so tests can drive every resulting state
// deterministically without mutating the process environment.
type Config struct {
	// DisableControl short-circuits ApplyControl entirely: no planning,
	// no dispatch, state unchanged.
	DisableControl bool
	// DisableApply lets planning run but suppresses the apply callback.
	DisableApply bool
	// DisableIdle excludes idle-lower candidates from the pair search.
	DisableIdle bool
}

// ConfigFromEnv reads the three POET_DISABLE_* variables once. A
// variable counts as set if present in the environment, regardless of
// value (matching the original's getenv(...) == NULL check).
func ConfigFromEnv() Config {
	return Config{
		DisableControl: envSet(EnvDisableControl),
		DisableApply:   envSet(EnvDisableApply),
		DisableIdle:    envSet(EnvDisableIdle),
	}
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}
