package snapshot

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/vexra/snapjs/bytecode"
	"github.com/vexra/snapjs/errz"
	"github.com/vexra/snapjs/object"
	"github.com/vexra/snapjs/vm"
)

// Execute deserializes a snapshot and runs it to completion, wiring the
// host's print builtin into the global slot the compiler reserved for it.
// stdout receives everything the script's print calls produce; the return
// value is what vm.Run returns: the value of a top-level return statement,
// or nil when the script runs to its end.
func Execute(ctx context.Context, data []byte, stdout io.Writer, logger zerolog.Logger) (object.Value, error) {
	root, err := bytecode.Unmarshal(data)
	if err != nil {
		kind := errz.KindIntegrity
		if errors.Is(err, bytecode.ErrBadMagic) || errors.Is(err, bytecode.ErrBadVersion) || errors.Is(err, bytecode.ErrTruncated) ||
			errors.Is(err, bytecode.ErrUnknownConstantTag) {
			kind = errz.KindFormat
		}
		return nil, errz.New(kind, "failed to load snapshot", errz.SourceLocation{}).WithCause(err)
	}

	if err := Validate(root); err != nil {
		return nil, errz.New(errz.KindIntegrity, "snapshot failed integrity validation", errz.SourceLocation{}).WithCause(err)
	}

	logger.Debug().
		Int("blocks", len(root.Flatten())).
		Str("filename", root.Filename()).
		Msg("snapshot loaded")

	env := map[string]object.Value{
		"print": vm.PrintBuiltin(stdout),
	}
	result, err := vm.Run(ctx, root, env)
	if err != nil {
		return nil, errz.New(errz.KindRuntime, err.Error(), errz.SourceLocation{Filename: root.Filename()}).WithCause(err)
	}
	return result, nil
}
