package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/lemonscript/lemon/lang/asmtext"
)

// Asm assembles each given file and prints its unoptimized opcode listing:
// the functions exactly as lang/asmtext assembled them from the text, before
// lang/optimizer touches them (lang/emitter is not involved).
func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return AsmFiles(stdio, args...)
}

func AsmFiles(stdio mainer.Stdio, files ...string) error {
	fns, err := loadFunctions(files)
	if err != nil {
		return fail(stdio, err)
	}
	names := callNameResolver(fns)
	for _, fn := range fns {
		fmt.Fprint(stdio.Stdout, string(asmtext.Disassemble(fn, names)))
	}
	return nil
}
