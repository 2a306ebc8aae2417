// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the biovault command tree.
package commands

import (
	"io"
	"os"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
	"github.com/bureau-foundation/biovault/lib/clock"
)

// Env is the process environment commands run in. Tests substitute
// buffers and a fake clock.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Clock  clock.Clock
}

// DefaultEnv uses the process's standard streams and the real clock.
func DefaultEnv() *Env {
	return &Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Clock:  clock.Real(),
	}
}

// Root builds the complete command tree.
func Root(env *Env) *cli.Command {
	return &cli.Command{
		Name:       "biovault",
		HelpOutput: env.Stderr,
		Description: `biovault: a session credential behind a biometric check.

The credential is sealed with a device key and stored in an entry bound
to the enrolled biometric identities. Reading it requires a fresh
biometric challenge; changing the enrolled identities makes it
permanently unreadable.

Configuration is read from --config or BIOVAULT_CONFIG.`,
		Subcommands: []*cli.Command{
			statusCommand(env),
			saveCommand(env),
			retrieveCommand(env),
			deleteCommand(env),
			clearCommand(env),
			versionCommand(env),
		},
	}
}
