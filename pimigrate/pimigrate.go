// Package pimigrate allows running the pimigrate CLI from Go code
// programmatically, e.g. from provisioning tools.
package pimigrate

import (
	"context"
	"io"

	"github.com/pimigrate/tools/internal/cli"
)

type Context struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Args   []string
}

func (c Context) Execute(ctx context.Context) error {
	root := cli.RootCmd()
	if r := c.Stdin; r != nil {
		root.SetIn(r)
	}
	if w := c.Stdout; w != nil {
		root.SetOut(w)
	}
	if w := c.Stderr; w != nil {
		root.SetErr(w)
	}
	if args := c.Args; args != nil {
		root.SetArgs(args)
	}
	root.SetContext(ctx)
	return root.Execute()
}
