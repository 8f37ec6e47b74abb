// Package config loads the environment-driven limits lang/vm enforces on a
// running Thread. The core library itself takes these as explicit
// constructor arguments; this package exists for the CLI and other hosts
// that want an environment-variable escape hatch instead of wiring values
// through by hand, the way the teacher's mainer-based commands read their
// own flags.
package config

import (
	"github.com/caarlos0/env/v6"

	"github.com/lemonscript/lemon/lang/types"
)

// Runtime holds the StackVM execution-contract limits spec.md §5 and §4.4
// leave to the host: step count, call-stack depth, and the external-address
// type EXTERNAL_CALL/EXTERNAL_JUMP opcodes cast their operand to.
type Runtime struct {
	// MaxSteps bounds the number of opcodes a single Thread.Run will
	// execute before aborting with ErrStepLimitExceeded. Zero means
	// unlimited.
	MaxSteps int64 `env:"MAX_STEPS" envDefault:"10000000"`

	// MaxCallStackDepth bounds script-function call recursion; exceeding
	// it raises ErrStackOverflow, the runtime counterpart of the emitter's
	// compile-time StackOverflow note in spec.md §4.4.
	MaxCallStackDepth int `env:"MAX_CALL_STACK_DEPTH" envDefault:"256"`

	// ExternalAddressTypeName names the BaseType EXTERNAL_CALL/EXTERNAL_JUMP
	// arguments are coerced to before dispatch, as a string since env.Parse
	// has no direct BaseType binding; Runtime.ExternalAddressType() resolves
	// it.
	ExternalAddressTypeName string `env:"EXTERNAL_ADDRESS_TYPE" envDefault:"u32"`

	// AllowInlineExecution is filled by Load, but neither lang/dispatch nor
	// lang/vm reads it: whether a CALL opcode is rewritten into an inline
	// native invocation depends only on the callee's Function.Flags(), as
	// checked by lang/emitter and lang/dispatch. Setting it false does not
	// disable inlining.
	AllowInlineExecution bool `env:"ALLOW_INLINE_EXECUTION" envDefault:"true"`
}

// Load populates Runtime from the process environment under the LEMON_
// prefix (LEMON_MAX_STEPS, LEMON_MAX_CALL_STACK_DEPTH, ...), applying the
// struct tag defaults for anything unset.
func Load() (Runtime, error) {
	var r Runtime
	if err := env.Parse(&r, env.Options{Prefix: "LEMON_"}); err != nil {
		return Runtime{}, err
	}
	return r, nil
}

var nameToBaseType = map[string]types.BaseType{
	"u8": types.UINT_8, "u16": types.UINT_16, "u32": types.UINT_32, "u64": types.UINT_64,
	"s8": types.INT_8, "s16": types.INT_16, "s32": types.INT_32, "s64": types.INT_64,
}

// ExternalAddressType resolves ExternalAddressTypeName to a types.BaseType,
// defaulting to UINT_32 for an unrecognized name rather than failing Load
// outright. The unrecognized name is not reported anywhere; it is silently
// replaced by UINT_32.
func (r Runtime) ExternalAddressType() types.BaseType {
	if t, ok := nameToBaseType[r.ExternalAddressTypeName]; ok {
		return t
	}
	return types.UINT_32
}
