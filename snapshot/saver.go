// Package snapshot is the CLI-facing orchestration layer: parse+compile+
// serialize on the save side, deserialize+run on the load side. The byte
// layout itself — literal interning, code-block indexing, the constant-pool
// rewrite — lives in bytecode.Marshal/Unmarshal; this package owns the
// surrounding lifecycle (compiling from source, validating, executing,
// logging) that spec.md's Saver/Loader describe beyond wire format.
package snapshot

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vexra/snapjs/bytecode"
	"github.com/vexra/snapjs/compiler"
	"github.com/vexra/snapjs/errz"
	"github.com/vexra/snapjs/lang"
)

// hostGlobals lists the names the compiler treats as environment-supplied
// rather than script-defined. Both Generate and Execute must agree on this
// set, since it determines global slot numbering.
var hostGlobals = []string{"print"}

// Generate parses and compiles source into a code tree, then serializes it.
// filename is used only for diagnostics and embedded in the snapshot.
func Generate(ctx context.Context, filename, source string, logger zerolog.Logger) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	program, err := lang.Parse(source, filename)
	if err != nil {
		return nil, errz.New(errz.KindCompile, err.Error(), errz.SourceLocation{Filename: filename}).WithCause(err)
	}
	root, err := compiler.Compile(program, &compiler.Config{
		Filename:    filename,
		Source:      source,
		GlobalNames: hostGlobals,
	})
	if err != nil {
		return nil, errz.New(errz.KindCompile, err.Error(), errz.SourceLocation{Filename: filename}).WithCause(err)
	}
	return Save(root, logger)
}

// Save serializes a code tree into the on-disk snapshot format.
func Save(root *bytecode.Code, logger zerolog.Logger) ([]byte, error) {
	data, err := bytecode.Marshal(root)
	if err != nil {
		return nil, errz.New(errz.KindIntegrity, "failed to serialize code tree", errz.SourceLocation{}).WithCause(err)
	}
	logger.Debug().
		Int("bytes", len(data)).
		Int("blocks", len(root.Flatten())).
		Str("filename", root.Filename()).
		Msg("snapshot saved")
	return data, nil
}
