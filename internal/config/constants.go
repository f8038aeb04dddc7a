package config

// SourceFileExt is the canonical Fallen source file extension.
const SourceFileExt = ".fallen"

// ConfigFileName is the optional per-project runtime configuration file.
const ConfigFileName = "fallen.yaml"

// DefaultMaxCallDepth bounds recursion before the VM raises a
// "max call depth exceeded" error.
const DefaultMaxCallDepth = 1000

// DefaultMaxSteps disables the runaway-loop guard (0 = unlimited).
const DefaultMaxSteps = 0

// Pseudo source names used for frames that have no file behind them.
const (
	ReplSource  = "<repl>"
	ModuleFrame = "<module>"
)
