package maincmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/mainer"

	"github.com/lemonscript/lemon/internal/config"
	"github.com/lemonscript/lemon/lang/optimizer"
	"github.com/lemonscript/lemon/lang/program"
	"github.com/lemonscript/lemon/lang/vm"
)

// Run assembles every given file, optimizes each function, registers them
// all as callees of one another in a single vm.SimpleModule, then executes
// the entry function (c.Entry, or the first file's function by default)
// with the int64 arguments in c.Args.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, c.Entry, c.Args, c.MaxSteps, args...)
}

func RunFiles(ctx context.Context, stdio mainer.Stdio, entry, argsCSV string, maxStepsOverride int64, files ...string) error {
	fns, err := loadFunctions(files)
	if err != nil {
		return fail(stdio, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fail(stdio, fmt.Errorf("loading runtime config: %w", err))
	}
	if maxStepsOverride > 0 {
		cfg.MaxSteps = maxStepsOverride
	}

	mod := vm.NewSimpleModule(cfg.ExternalAddressType())
	var entryFn *program.ScriptFunction
	for i, fn := range fns {
		optimizer.Optimize(fn)
		mod.AddFunction(vm.NewScriptFunction(fn))
		if entry == "" && i == 0 {
			entryFn = fn
		}
		if fn.Name == entry {
			entryFn = fn
		}
	}
	if entryFn == nil {
		return fail(stdio, fmt.Errorf("run: entry function %q not found among %d assembled file(s)", entry, len(fns)))
	}

	callArgs, err := parseArgs(argsCSV)
	if err != nil {
		return fail(stdio, err)
	}

	th := &vm.Thread{
		Stdout:            stdio.Stdout,
		Stderr:            stdio.Stderr,
		Module:            mod,
		MaxSteps:          cfg.MaxSteps,
		MaxCallStackDepth: cfg.MaxCallStackDepth,
	}

	result, err := th.Run(ctx, entryFn, callArgs)
	if err != nil {
		return fail(stdio, fmt.Errorf("run: %w", err))
	}
	fmt.Fprintf(stdio.Stdout, "%d\n", result)
	return nil
}

// parseArgs parses a comma-separated list of int64 arguments. An empty
// string yields no arguments, the common case of a niladic entry function.
func parseArgs(csv string) ([]int64, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	fields := strings.Split(csv, ",")
	out := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("run: invalid --args value %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}
