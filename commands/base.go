// Package commands holds the built-ins that run on the child side of a
// pipeline stage: their output flows through the same pipe and file wiring
// as any external program's.
package commands

import (
	"fmt"
	"io"

	getopt "github.com/pborman/getopt/v2"

	"github.com/hamzasclone2/quash/core/jobs"
)

// Invocation is the execution context a built-in body receives: the stage's
// wired streams, its argument vector and a read-only view of the job table.
type Invocation struct {
	// Args holds the command line, including the command name as Args[0].
	Args []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Jobs is the shell's job table. Built-ins only read it; the table is
	// mutated exclusively by the shell's own thread of control.
	Jobs *jobs.Table

	// Getwd reports the shell's current working directory.
	Getwd func() (string, error)
}

// ProcessFunc is the body of a built-in command. The return value is the
// stage's exit code.
type ProcessFunc func(inv *Invocation) int

// AllCommands maps built-in names to their bodies.
var AllCommands = make(map[string]ProcessFunc)

func addCmd(name string, cmd ProcessFunc) {
	AllCommands[name] = cmd
}

// SimpleCommand reduces the boilerplate of built-ins that only need flag
// parsing and a callback.
type SimpleCommand struct {
	// Use holds a one line usage string.
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag
	// isn't added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(inv *Invocation, callback func(opts *getopt.Set) int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(inv.Args, nil); err != nil {
		fmt.Fprintf(inv.Stderr, "error: %s\n\n", err)
		s.PrintHelp(inv.Stderr)
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(inv.Stdout)
		return 0
	}

	return callback(opts)
}
