package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/lemonscript/lemon/lang/asmtext"
	"github.com/lemonscript/lemon/lang/optimizer"
)

// Optimize assembles each given file, runs the seven-pass optimizer over
// it, and prints the optimized opcode listing.
func (c *Cmd) Optimize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return OptimizeFiles(stdio, args...)
}

func OptimizeFiles(stdio mainer.Stdio, files ...string) error {
	fns, err := loadFunctions(files)
	if err != nil {
		return fail(stdio, err)
	}
	names := callNameResolver(fns)
	for _, fn := range fns {
		optimizer.Optimize(fn)
		fmt.Fprint(stdio.Stdout, string(asmtext.Disassemble(fn, names)))
	}
	return nil
}
