// Command snapshot-tool generates and executes bytecode snapshots for
// snapjs's small scripting language: `--generate <source-file>` compiles a
// script and writes snapshot.bin, `--execute <snapshot-file>` loads and
// runs one.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vexra/snapjs/errz"
	"github.com/vexra/snapjs/snapshot"
)

// errInputUnreadable marks the one failure mode that gets its own exit
// code, matching SnapshotTool.cpp's readFile: the source or snapshot file
// named on the command line could not be opened.
var errInputUnreadable = errors.New("cannot open input file")

// Exit codes match _examples/original_source/src/snapshot/SnapshotTool.cpp:
// 23 for an unreadable input file (its readFile's exit(23)), 1 for any
// other failure, 0 for success.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUnreadable = 23
	outputSnapshot = "snapshot.bin"
)

var (
	generateFile string
	executeFile  string
	verbose      bool
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:           "snapshot-tool",
		Short:         "Generate and execute snapjs bytecode snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          rootRunE,
	}
	root.Flags().StringVar(&generateFile, "generate", "", "compile a source file and write snapshot.bin")
	root.Flags().StringVar(&executeFile, "execute", "", "load and run a snapshot file")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log codec debug lines to stderr")

	if err := root.Execute(); err != nil {
		printError(err)
		if errors.Is(err, errInputUnreadable) {
			return exitUnreadable
		}
		return exitFailure
	}
	return exitOK
}

func rootRunE(cmd *cobra.Command, args []string) error {
	if generateFile == "" && executeFile == "" {
		return fmt.Errorf("usage: snapshot-tool --generate <source-file> | --execute <snapshot-file>")
	}
	if generateFile != "" && executeFile != "" {
		return fmt.Errorf("--generate and --execute are mutually exclusive")
	}

	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	ctx := context.Background()

	if generateFile != "" {
		return generate(ctx, generateFile, logger)
	}
	return execute(ctx, executeFile, logger)
}

func generate(ctx context.Context, filename string, logger zerolog.Logger) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errInputUnreadable, filename, err)
	}

	data, err := snapshot.Generate(ctx, filename, string(src), logger)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputSnapshot, data, 0o644); err != nil {
		_ = os.Remove(outputSnapshot)
		return errz.New(errz.KindIO, "cannot write snapshot", errz.SourceLocation{Filename: outputSnapshot}).WithCause(err)
	}
	fmt.Fprintln(os.Stdout, successMessage(fmt.Sprintf("wrote %s (%d bytes)", outputSnapshot, len(data))))
	return nil
}

func execute(ctx context.Context, filename string, logger zerolog.Logger) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errInputUnreadable, filename, err)
	}

	result, err := snapshot.Execute(ctx, data, os.Stdout, logger)
	if err != nil {
		return err
	}
	if result != nil && result.Type() != "nil" {
		fmt.Fprintln(os.Stdout, result.Inspect())
	}
	return nil
}

func successMessage(msg string) string {
	if color.NoColor {
		return msg
	}
	return color.GreenString(msg)
}

func printError(err error) {
	msg := err.Error()
	if !color.NoColor {
		msg = color.RedString(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
}
