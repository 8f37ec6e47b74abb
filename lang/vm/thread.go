// Package vm implements the StackVM execution contract spec.md §4.4
// describes but leaves out of core scope: a Thread drives lang/dispatch's
// RuntimeOpcode stream to completion over an i64-slot value stack and a
// per-call local-variable region, directly adapted from the teacher's
// lang/machine Thread/run shape — generalized from a boxed-Value register
// machine to lemonscript's flat scalar model.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/lemonscript/lemon/lang/dispatch"
	"github.com/lemonscript/lemon/lang/program"
)

// valueStackCapacity bounds each call frame's operand stack. Unlike the
// teacher's Funcode.MaxStack (computed by its compiler), lemonscript's
// ScriptFunction carries no precomputed maximum depth — the optimizer
// passes here never need one — so frames use one generous fixed-size
// allocation instead. Deep expression nesting beyond this is not expected
// in practice; see DESIGN.md.
const valueStackCapacity = 4096

// Thread executes compiled ScriptFunctions against a Module. Mirrors the
// teacher's machine.Thread: a reusable, single-program execution context
// with host-configurable I/O, step and recursion limits.
type Thread struct {
	// Name optionally identifies the thread for debugging.
	Name string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// Module resolves variable and function ids during execution.
	Module program.Module

	// Memory backs READ_MEMORY/WRITE_MEMORY. Pre-size it to whatever the
	// script's mem[] accessors need; out-of-range accesses clamp rather
	// than trap (spec.md §7).
	Memory []byte

	// MaxSteps bounds the total opcodes this Thread will execute across
	// every call before aborting with ErrStepLimitExceeded. <= 0 means
	// unlimited.
	MaxSteps int64

	// MaxCallStackDepth bounds script-function call recursion.
	// <= 0 means unlimited.
	MaxCallStackDepth int

	// ExternalCall and ExternalJump back the EXTERNAL_CALL/EXTERNAL_JUMP
	// opcodes: the address expression's value (already cast to
	// Module.ExternalAddressType) is passed in. ExternalCall's returned value
	// is pushed as the opcode's result; ExternalJump's returned value becomes
	// the calling function's return value. Either may be nil, in which case
	// executing the corresponding opcode fails with ErrNoExternalHandler.
	ExternalCall  func(addr int64) (int64, error)
	ExternalJump  func(addr int64) (int64, error)

	ctx       context.Context
	ctxCancel func()
	cancelled atomic.Bool

	steps uint64
	depth int

	runtimeCache map[*program.ScriptFunction][]dispatch.RuntimeOpcode

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func (th *Thread) init() {
	if th.ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Stdin != nil {
		th.stdin = th.Stdin
	} else {
		th.stdin = os.Stdin
	}
	if th.runtimeCache == nil {
		th.runtimeCache = make(map[*program.ScriptFunction][]dispatch.RuntimeOpcode)
	}
}

// Run executes fn with args and returns its result (0 for a VOID-returning
// function). ctx, if cancelled, aborts the run with ErrCancelled at the
// next opcode boundary.
func (th *Thread) Run(ctx context.Context, fn *program.ScriptFunction, args []int64) (int64, error) {
	if th.Module == nil {
		return 0, fmt.Errorf("vm: Thread.Module is nil")
	}
	runCtx, cancel := context.WithCancel(ctx)
	th.ctx = runCtx
	th.ctxCancel = cancel
	defer cancel()
	th.init()

	go func() {
		<-th.ctx.Done()
		th.cancelled.Store(true)
	}()

	return th.callScript(fn, args)
}

// callScript pushes a new call frame for fn, enforcing MaxCallStackDepth,
// and runs it to completion. It is the Go-level recursion point every
// nested CALL opcode re-enters through, mirroring the teacher's own
// recursive Call/run pair — the host language's call stack stands in for
// an explicit frame stack, with th.depth tracking it independently so the
// configured limit is enforced regardless of how deep Go's own stack can
// actually go.
func (th *Thread) callScript(fn *program.ScriptFunction, args []int64) (int64, error) {
	if th.MaxCallStackDepth > 0 && th.depth >= th.MaxCallStackDepth {
		return 0, ErrStackOverflow
	}
	th.depth++
	defer func() { th.depth-- }()
	return th.run(fn, args)
}

func (th *Thread) runtimeFor(fn *program.ScriptFunction) []dispatch.RuntimeOpcode {
	if rt, ok := th.runtimeCache[fn]; ok {
		return rt
	}
	rt := make([]dispatch.RuntimeOpcode, len(fn.Opcodes))
	for i := 0; i < len(fn.Opcodes); {
		consumed := dispatch.BuildRuntimeOpcode(&rt[i], fn.Opcodes, i, th.Module, fn)
		i += consumed
	}
	th.runtimeCache[fn] = rt
	return rt
}

func nlocalsOf(fn *program.ScriptFunction) int {
	n := int(fn.LocalVariablesMemorySize / 8)
	for _, v := range fn.Locals {
		end := int(v.LocalMemoryOffset/8) + 1
		if end > n {
			n = end
		}
	}
	return n
}

func (th *Thread) run(fn *program.ScriptFunction, args []int64) (int64, error) {
	runtimeOps := th.runtimeFor(fn)

	// Arguments follow the calling convention the emitter's prologue
	// assumes: pushed left to right on the value stack, popped right to
	// left into parameter locals by the SET_VARIABLE_VALUE / MOVE_STACK -1
	// pairs at function entry. They are also pre-seeded into the parameter
	// locals directly so hand-assembled functions without a prologue (the
	// asmtext path) read them the same way.
	locals := make([]int64, nlocalsOf(fn))
	for i := 0; i < len(fn.Parameters) && i < len(fn.Locals); i++ {
		if i >= len(args) {
			break
		}
		off := int(fn.Locals[i].LocalMemoryOffset / 8)
		locals[off] = args[i]
	}

	ctx := &dispatch.Context{
		Stack:  make([]int64, valueStackCapacity),
		Locals: locals,
		Memory: th.Memory,
		JumpTo: -1,
	}
	for _, a := range args {
		ctx.Push(a)
	}

	return th.loop(fn, runtimeOps, ctx)
}
