// Package shell turns raw input lines into the stage descriptors the
// pipeline executor consumes.
package shell

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anmitsu/go-shlex"
)

// Variant identifies what a pipeline stage does when dispatched.
type Variant int

const (
	GenericExec Variant = iota
	Echo
	Export
	ChangeDir
	SendSignal
	PrintWorkDir
	ListJobs
	Exit
	// EndOfCommands terminates every parsed stage sequence.
	EndOfCommands
)

func (v Variant) String() string {
	switch v {
	case GenericExec:
		return "exec"
	case Echo:
		return "echo"
	case Export:
		return "export"
	case ChangeDir:
		return "cd"
	case SendSignal:
		return "kill"
	case PrintWorkDir:
		return "pwd"
	case ListJobs:
		return "jobs"
	case Exit:
		return "exit"
	case EndOfCommands:
		return "eoc"
	}
	return "unknown"
}

// Stage describes one command of a pipeline: the variant, its
// variant-specific fields and the stream-wiring flags.
type Stage struct {
	Variant Variant

	// Argv holds the command and its arguments, redirection operators and
	// their operands removed.
	Argv []string

	// Export fields, valid when Variant == Export.
	ExportName  string
	ExportValue string

	// Target directory, valid when Variant == ChangeDir.
	Dir string

	// Signal delivery fields, valid when Variant == SendSignal.
	JobID  int
	Signal int

	PipeFromPrev bool
	PipeToNext   bool
	RedirectIn   bool
	RedirectOut  bool
	AppendOut    bool
	Background   bool

	InPath  string
	OutPath string
}

// ExpandFunc maps a variable name to its value during token expansion.
type ExpandFunc func(string) string

// Parse splits a line into pipeline stages and appends the end-of-commands
// sentinel. The expand function is applied to every token; pass nil to skip
// expansion (os.Getenv is the usual choice).
func Parse(line string, expand ExpandFunc) ([]Stage, error) {
	tokens, err := shlex.Split(line, true)
	if err != nil {
		return nil, fmt.Errorf("syntax error: %v", err)
	}

	if expand != nil {
		for i, tok := range tokens {
			tokens[i] = os.Expand(tok, expand)
		}
	}

	var segments [][]string
	var current []string
	background := false
	for i, tok := range tokens {
		switch tok {
		case "|":
			if len(current) == 0 {
				return nil, fmt.Errorf("syntax error near unexpected token `|'")
			}
			segments = append(segments, current)
			current = nil
		case "&":
			if i != len(tokens)-1 {
				return nil, fmt.Errorf("syntax error near unexpected token `&'")
			}
			background = true
		default:
			current = append(current, tok)
		}
	}
	if len(current) > 0 {
		segments = append(segments, current)
	} else if len(segments) > 0 {
		return nil, fmt.Errorf("syntax error near unexpected token `|'")
	}

	var stages []Stage
	for i, seg := range segments {
		stage, err := parseStage(seg)
		if err != nil {
			return nil, err
		}
		stage.PipeFromPrev = i > 0
		stage.PipeToNext = i < len(segments)-1
		if i == len(segments)-1 {
			stage.Background = background
		}
		stages = append(stages, stage)
	}

	stages = append(stages, Stage{Variant: EndOfCommands})
	return stages, nil
}

func parseStage(tokens []string) (Stage, error) {
	var stage Stage

	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "<":
			if i+1 >= len(tokens) {
				return stage, fmt.Errorf("syntax error: expected path after `<'")
			}
			stage.RedirectIn = true
			stage.InPath = tokens[i+1]
			i++
		case ">", ">>":
			if i+1 >= len(tokens) {
				return stage, fmt.Errorf("syntax error: expected path after `%s'", tokens[i])
			}
			stage.RedirectOut = true
			stage.AppendOut = tokens[i] == ">>"
			stage.OutPath = tokens[i+1]
			i++
		default:
			stage.Argv = append(stage.Argv, tokens[i])
		}
	}

	if len(stage.Argv) == 0 {
		return stage, fmt.Errorf("syntax error: empty command")
	}

	switch stage.Argv[0] {
	case "echo":
		stage.Variant = Echo
	case "export":
		if err := parseExport(&stage); err != nil {
			return stage, err
		}
	case "cd":
		stage.Variant = ChangeDir
		if len(stage.Argv) > 1 {
			stage.Dir = stage.Argv[1]
		}
	case "kill":
		if err := parseKill(&stage); err != nil {
			return stage, err
		}
	case "pwd":
		stage.Variant = PrintWorkDir
	case "jobs":
		stage.Variant = ListJobs
	case "exit", "quit":
		stage.Variant = Exit
	default:
		stage.Variant = GenericExec
	}

	return stage, nil
}

func parseExport(stage *Stage) error {
	stage.Variant = Export
	if len(stage.Argv) < 2 {
		return fmt.Errorf("export: expected NAME=VALUE")
	}
	name, value, found := strings.Cut(stage.Argv[1], "=")
	if !found || name == "" {
		return fmt.Errorf("export: `%s': not a valid identifier", stage.Argv[1])
	}
	stage.ExportName = name
	stage.ExportValue = value
	return nil
}

// parseKill accepts "kill JOBID" and "kill [-]SIGNUM JOBID". With no signal
// number the dispatcher falls back to SIGTERM.
func parseKill(stage *Stage) error {
	stage.Variant = SendSignal

	args := stage.Argv[1:]
	switch len(args) {
	case 1:
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		stage.JobID = id
	case 2:
		sig, err := strconv.Atoi(strings.TrimPrefix(args[0], "-"))
		if err != nil || sig <= 0 {
			return fmt.Errorf("kill: %s: invalid signal specification", args[0])
		}
		id, err := parseJobID(args[1])
		if err != nil {
			return err
		}
		stage.Signal = sig
		stage.JobID = id
	default:
		return fmt.Errorf("kill: usage: kill [SIGNUM] JOBID")
	}
	return nil
}

func parseJobID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "%"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("kill: %s: no such job", arg)
	}
	return id, nil
}

// IsExitSequence reports whether the stage sequence is a bare exit command
// followed by the end-of-commands sentinel, the marker the read loop uses to
// end the session.
func IsExitSequence(stages []Stage) bool {
	return len(stages) == 2 &&
		stages[0].Variant == Exit &&
		stages[1].Variant == EndOfCommands
}
