// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
	"github.com/bureau-foundation/biovault/lib/version"
)

type versionParams struct {
	cli.JSONOutput
}

func versionCommand(env *Env) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print build information",
		Usage:   "biovault version [--json]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if done, err := params.EmitJSON(env.Stdout, version.Current()); done {
				return err
			}
			fmt.Fprintln(env.Stdout, version.Full())
			return nil
		},
	}
}
