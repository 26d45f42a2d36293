// Binary pimigrate moves a running Raspberry Pi OS installation from its SD
// card to NVMe (or USB) storage and makes the copy bootable.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pimigrate/tools/internal/migrate"
	"github.com/pimigrate/tools/pimigrate"
	"github.com/spf13/pflag"
)

func main() {
	// SIGINT/SIGTERM cancel the context: the running external program is
	// killed and the destination is unmounted before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := (pimigrate.Context{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Args:   os.Args[1:],
	}).Execute(ctx)
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	if errors.Is(err, migrate.ErrAborted) {
		fmt.Fprintln(os.Stderr, "Aborted, nothing was changed.")
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	stop()
	os.Exit(1)
}
