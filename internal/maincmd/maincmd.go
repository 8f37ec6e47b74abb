// Package maincmd implements the command set cmd/lemon's entry point
// dispatches to: a mna/mainer-based Cmd with a Validate/Main split and a
// fixed table of five verbs. The core has no tokenizer/parser/resolver to
// drive from a CLI (spec.md places the frontend out of scope); instead
// asm, optimize, disasm, run and hash exercise the four in-scope
// subsystems (lang/asmtext standing in for the missing frontend,
// lang/optimizer, lang/dispatch, lang/vm) directly from the command line.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "lemon"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Ahead-of-time compiler, optimizer and interpreter for lemonscript's core
(opcode emission, peephole/dead-code optimization, runtime dispatch and a
stack-based VM). The %[1]s CLI builds program.ScriptFunction values from
the textual assembly format in lang/asmtext rather than from lemonscript
source, since the tokenizer/parser/resolver frontend is a separate
collaborator this core treats as out of scope (see spec.md §1).

The <command> can be one of:
       asm                       Assemble a .lasm file and print the
                                 resulting (unoptimized) opcode listing.
       optimize                  Assemble, run the seven-pass optimizer,
                                 and print the optimized opcode listing.
       disasm                    Assemble and print the opcode listing
                                 with CALL targets shown as raw signature
                                 hashes rather than names, the way a real
                                 disassembler (with no symbol table: spec.md
                                 §6 mandates no stable on-disk format) sees
                                 them.
       run                       Assemble every given file, optimize each,
                                 register them as callees of one another,
                                 and execute the entry function.
       hash                      Assemble and print each function's
                                 compiled-hash (see spec.md §6).

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Valid flag options for the <run> command are:
       --entry <name>            Name of the function to execute (default:
                                 the first file's function).
       --args <csv>              Comma-separated int64 arguments passed to
                                 the entry function.
       --max-steps <n>           Override LEMON_MAX_STEPS for this run.

More information on the %[1]s repository:
       https://github.com/lemonscript/lemon
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Entry    string `flag:"entry"`
	Args     string `flag:"args"`
	MaxSteps int64  `flag:"max-steps"`

	args  []string
	flags map[string]bool
	cmdFn commandFunc
}

func (c *Cmd) SetArgs(args []string) { c.args = args }

func (c *Cmd) SetFlags(flags map[string]bool) { c.flags = flags }

// commandFunc is the shape every command shares: the signal-aware context,
// the command's stdio, and the file paths that followed the verb.
type commandFunc func(context.Context, mainer.Stdio, []string) error

// commands maps each CLI verb to its Cmd method. A fixed table of five
// verbs; the verb spelling lives here and nowhere else.
func (c *Cmd) commands() map[string]commandFunc {
	return map[string]commandFunc{
		"asm":      c.Asm,
		"optimize": c.Optimize,
		"disasm":   c.Disasm,
		"run":      c.Run,
		"hash":     c.Hash,
	}
}

// runOnlyFlags are accepted only by the run command, which is the only one
// that executes anything.
var runOnlyFlags = []string{"entry", "args", "max-steps"}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	name := c.args[0]
	fn, ok := c.commands()[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	if len(c.args) < 2 {
		return fmt.Errorf("%s: at least one file must be provided", name)
	}
	if name != "run" {
		for _, flagName := range runOnlyFlags {
			if c.flags[flagName] {
				return fmt.Errorf("%s: invalid flag '%s'", name, flagName)
			}
		}
	}

	c.cmdFn = fn
	return nil
}

// fail writes err to the command's stderr prefixed with the binary name
// and passes it through, so each command surfaces its own failure exactly
// once and Main only maps a non-nil result to an exit code.
func fail(stdio mainer.Stdio, err error) error {
	fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	if c.Help {
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	}
	if c.Version {
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// already reported through fail by the command itself
		return mainer.Failure
	}
	return mainer.Success
}
