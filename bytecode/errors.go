package bytecode

import "errors"

// Sentinel errors returned by Unmarshal. The snapshot package wraps these
// in an *errz.Error that adds an error kind.
var (
	// ErrBadMagic means the snapshot's leading magic number didn't match.
	ErrBadMagic = errors.New("bytecode: bad snapshot magic")

	// ErrBadVersion means the snapshot's version field is not supported.
	ErrBadVersion = errors.New("bytecode: unsupported snapshot version")

	// ErrTruncated means a region ran past the end of the buffer.
	ErrTruncated = errors.New("bytecode: truncated snapshot data")

	// ErrUnknownConstantTag means a constant pool entry had an unrecognized tag.
	ErrUnknownConstantTag = errors.New("bytecode: unknown constant tag")

	// ErrLiteralIndexOutOfRange means a literal-table reference pointed
	// past the end of the literal table.
	ErrLiteralIndexOutOfRange = errors.New("bytecode: literal index out of range")

	// ErrCodeIndexOutOfRange means a code-block reference pointed past the
	// end of the code-block table.
	ErrCodeIndexOutOfRange = errors.New("bytecode: code index out of range")
)
