// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
)

type retrieveParams struct {
	configParams
	cli.JSONOutput
	ShowTokens bool `flag:"show-tokens" desc:"include the access and refresh tokens in the output"`
}

type retrieveResult struct {
	Username     string    `json:"username"`
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"expired"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

func retrieveCommand(env *Env) *cli.Command {
	var params retrieveParams
	return &cli.Command{
		Name:    "retrieve",
		Summary: "Read the stored credential after a biometric check",
		Description: `Prompt for a biometric challenge and print the stored credential.
Tokens are withheld unless --show-tokens is given.

A credential that can no longer be decrypted is deleted and reported
as an error; the next retrieve reports that nothing is stored.`,
		Usage: "biovault retrieve [flags]",
		Examples: []cli.Example{
			{Description: "Fetch the access token for a script", Command: "biovault retrieve --show-tokens --json"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("retrieve", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return &cli.UsageError{Message: fmt.Sprintf("unexpected argument %q", args[0])}
			}
			s, err := env.openSession(params.configParams, "retrieve")
			if err != nil {
				return err
			}
			defer s.Close()

			credential, err := s.vault.Retrieve(ctx)
			if err != nil {
				return err
			}
			result := retrieveResult{
				Username:  credential.Username,
				ExpiresAt: credential.ExpiresAt,
				Expired:   credential.Expired(env.Clock.Now()),
			}
			if params.ShowTokens {
				result.AccessToken = credential.AccessToken
				result.RefreshToken = credential.RefreshToken
			}

			if done, err := params.EmitJSON(env.Stdout, result); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "username:       %s\n", result.Username)
			fmt.Fprintf(env.Stdout, "expires_at:     %s\n", result.ExpiresAt.Format(time.RFC3339))
			fmt.Fprintf(env.Stdout, "expired:        %t\n", result.Expired)
			if params.ShowTokens {
				fmt.Fprintf(env.Stdout, "access_token:   %s\n", result.AccessToken)
				fmt.Fprintf(env.Stdout, "refresh_token:  %s\n", result.RefreshToken)
			}
			return nil
		},
	}
}
