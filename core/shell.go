package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"

	"github.com/hamzasclone2/quash/core/config"
	"github.com/hamzasclone2/quash/core/logger"
	"github.com/hamzasclone2/quash/core/shell"
)

const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvOldPWD   = "OLD_PWD"
	EnvPath     = "PATH"
	EnvPrompt   = "PS1"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"
)

var promptUserHost = color.New(color.FgGreen, color.Bold)

// Shell is the interactive read loop: it reads one line at a time, reaps
// finished background jobs, and hands parsed pipelines to its Session.
type Shell struct {
	Session  *Session
	Config   *config.Configuration
	Readline *readline.Instance
	toClose  listCloser
}

// NewShell builds an interactive shell on the process's standard streams.
func NewShell(configuration *config.Configuration, eventLog *logger.SessionLogger) (*Shell, error) {
	cfg := &readline.Config{
		Stdin:       readline.NewCancelableStdin(os.Stdin),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		HistoryFile: configuration.HistoryPath(),
	}
	if configuration.HistorySize > 0 {
		cfg.HistoryLimit = configuration.HistorySize
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	sh := &Shell{
		Session:  NewSession(eventLog, os.Stdin, os.Stdout, os.Stderr),
		Config:   configuration,
		Readline: rl,
	}
	sh.toClose = append(sh.toClose, rl)

	sh.Init()

	return sh, nil
}

// Init seeds the environment the way login would.
func (s *Shell) Init() {
	if os.Getenv(EnvPath) == "" {
		os.Setenv(EnvPath, s.Config.DefaultPath)
	}
	if wd, err := os.Getwd(); err == nil {
		os.Setenv(EnvPWD, wd)
	}
	for name, value := range s.Config.Env {
		if os.Getenv(name) == "" {
			os.Setenv(name, value)
		}
	}
}

// Prompt renders the configured PS1 style prompt.
func (s *Shell) Prompt() string {
	prompt := os.Getenv(EnvPrompt)
	if prompt == "" {
		prompt = s.Config.Prompt
	}

	user := os.Getenv(EnvUser)
	host, _ := os.Hostname()

	pwd, _ := os.Getwd()
	home := os.Getenv(EnvHome)
	if home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}

	prompt = strings.ReplaceAll(prompt, `\u`, promptUserHost.Sprint(user))
	prompt = strings.ReplaceAll(prompt, `\h`, promptUserHost.Sprint(host))
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)
	if os.Getuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	return prompt
}

// Run reads and executes pipelines until the input closes or an exit
// command is read.
func (s *Shell) Run() {
	if s.Config.Motd != "" {
		fmt.Fprintln(s.Session.Stdout, s.Config.Motd)
	}
	s.Session.Log.Record(logger.Event{Type: logger.EventSessionStart})
	defer s.Session.Log.Record(logger.Event{Type: logger.EventSessionEnd})

	for {
		// Reap finished background jobs before the next pipeline runs.
		s.Session.Reap()

		s.Readline.SetPrompt(s.Prompt())
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			return // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			log.Printf("Error readline: %v", err)
			continue

		case strings.TrimSpace(line) == "":
			continue
		}

		stages, err := shell.Parse(line, os.Getenv)
		if err != nil {
			fmt.Fprintf(s.Session.Stderr, "quash: %v\n", err)
			s.Session.Log.Record(logger.Event{
				Type:    logger.EventInvalidInput,
				Command: line,
				Error:   err.Error(),
			})
			continue
		}

		if shell.IsExitSequence(stages) {
			return
		}

		if _, err := s.Session.RunPipeline(line, stages); err != nil {
			fmt.Fprintf(s.Session.Stderr, "quash: %v\n", err)
		}
	}
}

// Close releases the shell's resources.
func (s *Shell) Close() error {
	return s.toClose.Close()
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
