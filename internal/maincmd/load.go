package maincmd

import (
	"fmt"
	"os"

	"github.com/lemonscript/lemon/lang/asmtext"
	"github.com/lemonscript/lemon/lang/program"
)

// placeholderResolver lets a first assembly pass succeed regardless of
// what a CALL instruction names, so loadFunctions can learn every file's
// declared function name and signature before any cross-file CALL target
// needs to resolve for real.
var placeholderResolver = asmtext.ResolverFunc(func(string) (uint64, bool) { return 0, true })

// loadFunctions assembles one *program.ScriptFunction per file, in order,
// resolving CALL instructions that name a sibling file's function by that
// function's own signature hash. Two passes are needed for the same reason
// asmtext.Assemble itself resolves labels in two passes: a CALL may name a
// function declared in a file that comes later in the list.
func loadFunctions(files []string) ([]*program.ScriptFunction, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	srcs := make([][]byte, len(files))
	for i, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		srcs[i] = b
	}

	headers := make([]*program.ScriptFunction, len(files))
	for i, src := range srcs {
		fn, err := asmtext.Assemble(src, placeholderResolver)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", files[i], err)
		}
		headers[i] = fn
	}

	resolver := asmtext.ResolverFunc(func(name string) (uint64, bool) {
		for _, fn := range headers {
			if fn.Name == name {
				return program.SignatureHash(fn.Name, fn.ReturnType, fn.Parameters), true
			}
		}
		return 0, false
	})

	fns := make([]*program.ScriptFunction, len(files))
	for i, src := range srcs {
		fn, err := asmtext.Assemble(src, resolver)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", files[i], err)
		}
		fns[i] = fn
	}
	return fns, nil
}
