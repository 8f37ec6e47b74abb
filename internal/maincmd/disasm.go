package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/lemonscript/lemon/lang/asmtext"
	"github.com/lemonscript/lemon/lang/optimizer"
	"github.com/lemonscript/lemon/lang/program"
)

// Disasm assembles and optimizes each given file like Optimize, but prints
// CALL targets as raw signature hashes instead of resolved names — the view
// a real disassembler has, since spec.md §6 mandates no stable on-disk
// format and therefore no persisted symbol table to read names back from.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DisasmFiles(stdio, args...)
}

func DisasmFiles(stdio mainer.Stdio, files ...string) error {
	fns, err := loadFunctions(files)
	if err != nil {
		return fail(stdio, err)
	}
	for _, fn := range fns {
		optimizer.Optimize(fn)
		fmt.Fprint(stdio.Stdout, string(asmtext.Disassemble(fn, nil)))
	}
	return nil
}

// callNameResolver builds a NameResolver over fns, for commands that still
// have every function's declared name on hand (asm/optimize, unlike the
// hash-only view disasm gives).
func callNameResolver(fns []*program.ScriptFunction) asmtext.NameResolver {
	return asmtext.NameResolverFunc(func(hash uint64) (string, bool) {
		for _, fn := range fns {
			if program.SignatureHash(fn.Name, fn.ReturnType, fn.Parameters) == hash {
				return fn.Name, true
			}
		}
		return "", false
	})
}
