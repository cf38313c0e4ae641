package commands

import (
	"flag"
	"fmt"
)

// Pwd prints the shell's current working directory.
func Pwd(inv *Invocation) int {
	flags := flag.NewFlagSet("pwd", flag.ContinueOnError)
	flags.SetOutput(inv.Stderr)
	if err := flags.Parse(inv.Args[1:]); err != nil {
		fmt.Fprintln(inv.Stderr, "Usage: pwd")
		fmt.Fprintln(inv.Stderr, "Print the name of the current working directory.")
		return 1
	}

	pwd, err := inv.Getwd()
	if err != nil {
		fmt.Fprintf(inv.Stderr, "pwd: %v\n", err)
		return 1
	}
	fmt.Fprintln(inv.Stdout, pwd)

	return 0
}

var _ ProcessFunc = Pwd

func init() {
	addCmd("pwd", Pwd)
}
