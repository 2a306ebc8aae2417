// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// biovault stores a session credential behind a biometric check.
//
// Run 'biovault --help' for the command list.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
	"github.com/bureau-foundation/biovault/cmd/biovault/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an ExitError
		// with the desired code. Don't print a redundant "error:" line
		// for those.
		var exitError *cli.ExitError
		if !errors.As(err, &exitError) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCodeFor(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return commands.Root(commands.DefaultEnv()).Execute(ctx, os.Args[1:])
}
