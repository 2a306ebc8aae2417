// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
)

type mutateParams struct {
	configParams
	cli.JSONOutput
}

type mutateResult struct {
	Action string `json:"action"`
}

func deleteCommand(env *Env) *cli.Command {
	var params mutateParams
	return &cli.Command{
		Name:    "delete",
		Summary: "Disable biometric sign-in, keeping the device key",
		Description: `Remove the stored credential. The encryption key is kept, so a later
save reuses it. Succeeds when nothing is stored.`,
		Usage: "biovault delete [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			return runMutation(ctx, env, params, args, "delete", func(s *session) error {
				return s.vault.Delete(ctx)
			})
		},
	}
}

func clearCommand(env *Env) *cli.Command {
	var params mutateParams
	return &cli.Command{
		Name:    "clear",
		Summary: "Remove the credential and destroy the encryption key",
		Description: `Remove the stored credential and destroy the encryption key, as on
sign-out. Any copy of the old ciphertext becomes undecryptable. The
next save creates a new key.`,
		Usage: "biovault clear [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("clear", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			return runMutation(ctx, env, params, args, "clear", func(s *session) error {
				return s.vault.ClearAll(ctx)
			})
		},
	}
}

func runMutation(ctx context.Context, env *Env, params mutateParams, args []string, action string, mutate func(*session) error) error {
	if len(args) > 0 {
		return &cli.UsageError{Message: fmt.Sprintf("unexpected argument %q", args[0])}
	}
	s, err := env.openSession(params.configParams, action)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := mutate(s); err != nil {
		return err
	}
	if done, err := params.EmitJSON(env.Stdout, mutateResult{Action: action}); done {
		return err
	}
	switch action {
	case "delete":
		fmt.Fprintln(env.Stdout, "credential removed")
	case "clear":
		fmt.Fprintln(env.Stdout, "credential removed and encryption key destroyed")
	}
	return nil
}
