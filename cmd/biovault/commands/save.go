// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
	"github.com/bureau-foundation/biovault/lib/vault"
)

type saveParams struct {
	configParams
	cli.JSONOutput
	Username     string        `flag:"username,u" desc:"account the credential belongs to"`
	AccessToken  string        `flag:"access-token" desc:"access token (default: first line of stdin)"`
	RefreshToken string        `flag:"refresh-token" desc:"refresh token (default: second line of stdin)"`
	ExpiresIn    time.Duration `flag:"expires-in" desc:"access token lifetime from now" default:"1h"`
}

type saveResult struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func saveCommand(env *Env) *cli.Command {
	var params saveParams
	return &cli.Command{
		Name:    "save",
		Summary: "Enable biometric sign-in by storing a credential",
		Description: `Store a session credential behind the biometric check, replacing any
credential already stored. Fails without writing anything when the
device cannot run a biometric challenge.

Tokens given on the command line are visible to other processes; pipe
them on stdin instead (access token on the first line, refresh token
on the second).`,
		Usage: "biovault save --username NAME [flags]",
		Examples: []cli.Example{
			{
				Description: "Store tokens read from a file",
				Command:     "biovault save --username alice --expires-in 30m < tokens.txt",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("save", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return &cli.UsageError{Message: fmt.Sprintf("unexpected argument %q", args[0])}
			}
			if params.Username == "" {
				return &cli.UsageError{Message: "--username is required"}
			}
			if params.ExpiresIn <= 0 {
				return &cli.UsageError{Message: "--expires-in must be positive"}
			}
			if params.AccessToken == "" || params.RefreshToken == "" {
				if err := readTokens(env, &params); err != nil {
					return err
				}
			}

			s, err := env.openSession(params.configParams, "save")
			if err != nil {
				return err
			}
			defer s.Close()

			credential := vault.NewCredential(params.Username, params.AccessToken, params.RefreshToken,
				params.ExpiresIn, env.Clock.Now())
			if err := s.vault.Enable(ctx, credential); err != nil {
				return err
			}

			result := saveResult{Username: credential.Username, ExpiresAt: credential.ExpiresAt}
			if done, err := params.EmitJSON(env.Stdout, result); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "saved credential for %s (expires %s)\n",
				result.Username, result.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

// readTokens fills whichever tokens were not given as flags from
// stdin, one per line in access, refresh order.
func readTokens(env *Env, params *saveParams) error {
	if env.Stdin == nil {
		return &cli.UsageError{Message: "--access-token and --refresh-token are required when stdin is unavailable"}
	}
	scanner := bufio.NewScanner(env.Stdin)
	next := func(name string) (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("reading %s from stdin: %w", name, err)
			}
			return "", &cli.UsageError{Message: fmt.Sprintf("%s not given and stdin ended", name)}
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	var err error
	if params.AccessToken == "" {
		if params.AccessToken, err = next("access token"); err != nil {
			return err
		}
	}
	if params.RefreshToken == "" {
		if params.RefreshToken, err = next("refresh token"); err != nil {
			return err
		}
	}
	return nil
}
