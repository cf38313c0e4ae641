package commands

import (
	getopt "github.com/pborman/getopt/v2"
)

// Jobs lists the currently live background jobs, one line per job in table
// order.
func Jobs(inv *Invocation) int {
	cmd := &SimpleCommand{
		Use:   "jobs",
		Short: "List active background jobs.",
	}

	return cmd.Run(inv, func(opts *getopt.Set) int {
		inv.Jobs.PrintList(inv.Stdout)
		return 0
	})
}

var _ ProcessFunc = Jobs

func init() {
	addCmd("jobs", Jobs)
}
