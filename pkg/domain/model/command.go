package model

import "strings"

// Command describes one subprocess invocation. Dir is always set explicitly; the
// process working directory is never changed.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

// String renders the command line for logs
func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandResult holds captured output of a finished command
type CommandResult struct {
	Stdout []byte
	Stderr []byte
}
