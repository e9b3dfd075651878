package vimregex

import "fmt"

// Engine selects which execution strategy compiles and runs a pattern.
// It mirrors the `\%#=N` in-pattern override from spec §4.E/§6.
type Engine uint8

const (
	// EngineAuto compiles with the NFA engine and falls through to the
	// backtracking engine on TooExpensive, the default (`\%#=0`).
	EngineAuto Engine = iota
	// EngineBT forces the backtracking engine (`\%#=1`).
	EngineBT
	// EngineNFA forces the NFA engine; patterns it cannot handle fail to
	// compile rather than silently falling back (`\%#=2`).
	EngineNFA
)

// Config controls compilation and matching limits. Build one with
// DefaultConfig and adjust only the fields a caller needs, the way the
// teacher's meta.Config/meta.DefaultConfig pairing works.
//
// Example:
//
//	cfg := vimregex.DefaultConfig()
//	cfg.MaxMemPat = 4 << 20
//	prog, err := vimregex.CompileWithConfig(pattern, flags, cfg)
type Config struct {
	// MaxMemPat is the soft byte budget for the backtracking engine's
	// explicit stacks (state_stack + back_stack). Exceeding it returns
	// ErrTooMuchMemory. Default: 1<<20 (1 MiB), matching Vim's 'maxmempattern'.
	MaxMemPat int

	// MaxProgramSize bounds the emitted BT opcode blob. Offsets are
	// 16-bit, so this can never exceed 65535; it exists so callers can set
	// a stricter budget. Default: 65535.
	MaxProgramSize int

	// MaxRecursionDepth bounds parser recursion (nested groups) and
	// \=expr substitution re-entry depth (the latter is hard-capped at 4
	// regardless of this field, per spec §4.F). Default: 100.
	MaxRecursionDepth int

	// PreferEngine selects the engine family used when the pattern does
	// not carry its own `\%#=N` prefix. Default: EngineAuto.
	PreferEngine Engine

	// DispatchOpcodeInterval is how many opcode dispatches the BT engine
	// executes between deadline/interrupt checks. Default: 100.
	DispatchOpcodeInterval int

	// DispatchColumnInterval sets how often the NFA engine checks for
	// cancellation: Match and MatchMulti hand it DispatchColumnInterval*1000
	// as the number of simulation steps (one per input position per start
	// column) between checks; it is not a count of starting columns.
	// Default: 20.
	DispatchColumnInterval int

	// Strict selects spec §6's STRICT compile flag: an unmatched '[' is
	// a hard E769 error. When false (the default), a '[' with no closing
	// ']' before the end of the pattern falls back to matching itself
	// literally instead, the lenient behavior Vim uses outside strict
	// contexts.
	Strict bool

	// NoBreak selects spec §6's NOBREAK compile flag: matching never
	// pauses for a cooperative cancellation check, trading the ability
	// to interrupt a pathological match for one less branch per opcode
	// dispatch. Default: false (periodic checks run every
	// DispatchOpcodeInterval/DispatchColumnInterval units, as normal).
	NoBreak bool
}

// DefaultConfig returns Vim's own defaults: a 1 MiB backtracking budget,
// the full 16-bit program size, automatic engine selection falling
// through NFA -> BT, and the periodic cancellation checks from spec §5.
func DefaultConfig() Config {
	return Config{
		MaxMemPat:              1 << 20,
		MaxProgramSize:         65535,
		MaxRecursionDepth:      100,
		PreferEngine:           EngineAuto,
		DispatchOpcodeInterval: 100,
		DispatchColumnInterval: 20,
		Strict:                 false,
		NoBreak:                false,
	}
}

// Validate checks that every field is in range, returning an error
// describing the first violation found.
func (c Config) Validate() error {
	if c.MaxMemPat <= 0 {
		return fmt.Errorf("vimregex: MaxMemPat must be positive, got %d", c.MaxMemPat)
	}
	if c.MaxProgramSize <= 0 || c.MaxProgramSize > 65535 {
		return fmt.Errorf("vimregex: MaxProgramSize must be in (0, 65535], got %d", c.MaxProgramSize)
	}
	if c.MaxRecursionDepth <= 0 || c.MaxRecursionDepth > 1000 {
		return fmt.Errorf("vimregex: MaxRecursionDepth must be in (0, 1000], got %d", c.MaxRecursionDepth)
	}
	if c.DispatchOpcodeInterval <= 0 {
		return fmt.Errorf("vimregex: DispatchOpcodeInterval must be positive, got %d", c.DispatchOpcodeInterval)
	}
	if c.DispatchColumnInterval <= 0 {
		return fmt.Errorf("vimregex: DispatchColumnInterval must be positive, got %d", c.DispatchColumnInterval)
	}
	return nil
}
