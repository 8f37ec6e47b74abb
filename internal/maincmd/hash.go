package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/lemonscript/lemon/lang/program"
)

// Hash assembles each given file and prints its function's compiled-hash
// (spec.md §6's "hosts detect post-compile bitwise identity between
// builds" contract) alongside its name and signature hash.
func (c *Cmd) Hash(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return HashFiles(stdio, args...)
}

func HashFiles(stdio mainer.Stdio, files ...string) error {
	fns, err := loadFunctions(files)
	if err != nil {
		return fail(stdio, err)
	}
	for i, fn := range fns {
		sig := program.SignatureHash(fn.Name, fn.ReturnType, fn.Parameters)
		fmt.Fprintf(stdio.Stdout, "%s: signature=%016x compiled=%016x\n", files[i], sig, fn.CompiledHash())
	}
	return nil
}
