package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := newCommander(flag.CommandLine, path.Base(os.Args[0]), &app{out: os.Stdout, errOut: os.Stderr})
	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func newCommander(fs *flag.FlagSet, name string, a *app) *subcommands.Commander {
	commander := subcommands.NewCommander(fs, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range a.commands() {
		commander.Register(c, "ledger")
	}
	return commander
}
