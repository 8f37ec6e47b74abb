package vm

import "errors"

// ErrStepLimitExceeded is returned when a Thread executes more opcodes than
// its configured MaxSteps allows, the runtime counterpart of spec.md §5's
// host-interposed quota mechanism.
var ErrStepLimitExceeded = errors.New("vm: step limit exceeded")

// ErrStackOverflow is returned when a script call would push the call stack
// past MaxCallStackDepth, the runtime enforcement spec.md §4.4 attributes
// to MOVE_VAR_STACK's frame-limit check.
var ErrStackOverflow = errors.New("vm: call stack overflow")

// ErrCancelled is returned when the context.Context passed to Thread.Run is
// cancelled mid-execution.
var ErrCancelled = errors.New("vm: cancelled")

// ErrUnknownFunction is returned when a CALL opcode's signature hash does
// not resolve against the thread's Module.
var ErrUnknownFunction = errors.New("vm: unknown function")

// ErrNotCallable is returned when a resolved program.Function implements
// neither dispatch.NativeFunction nor ScriptCallable, so the VM has no way
// to actually run it.
var ErrNotCallable = errors.New("vm: function is neither native nor script-callable")

// ErrNoExternalHandler is returned when an EXTERNAL_CALL/EXTERNAL_JUMP
// opcode executes but the Thread has no corresponding callback configured.
var ErrNoExternalHandler = errors.New("vm: no external call/jump handler configured")
