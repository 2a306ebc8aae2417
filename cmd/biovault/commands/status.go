// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/biovault/cmd/biovault/cli"
)

type statusParams struct {
	configParams
	cli.JSONOutput
}

type statusResult struct {
	BiometricType    string `json:"biometric_type"`
	Available        bool   `json:"available"`
	Description      string `json:"description"`
	CredentialStored bool   `json:"credential_stored"`
	StoreBackend     string `json:"store_backend"`
	BiometricBackend string `json:"biometric_backend"`
}

func statusCommand(env *Env) *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show biometric capability and whether a credential is stored",
		Description: `Report the device's biometric modality, whether a challenge could run
now, and whether a credential is stored. Never prompts.`,
		Usage: "biovault status [flags]",
		Examples: []cli.Example{
			{Description: "Check before offering biometric sign-in", Command: "biovault status --json"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return &cli.UsageError{Message: fmt.Sprintf("unexpected argument %q", args[0])}
			}
			s, err := env.openSession(params.configParams, "status")
			if err != nil {
				return err
			}
			defer s.Close()

			result := statusResult{
				BiometricType:    s.vault.BiometricType().String(),
				Available:        s.vault.IsAvailable(),
				Description:      s.vault.Description(),
				CredentialStored: s.vault.Exists(ctx),
				StoreBackend:     s.config.Store.Backend,
				BiometricBackend: s.config.Biometric.Backend,
			}
			if done, err := params.EmitJSON(env.Stdout, result); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "biometric:   %s (%s)\n", result.Description, result.BiometricType)
			fmt.Fprintf(env.Stdout, "available:   %t\n", result.Available)
			fmt.Fprintf(env.Stdout, "credential:  %s\n", storedLabel(result.CredentialStored))
			fmt.Fprintf(env.Stdout, "store:       %s\n", result.StoreBackend)
			fmt.Fprintf(env.Stdout, "backend:     %s\n", result.BiometricBackend)
			return nil
		},
	}
}

func storedLabel(stored bool) string {
	if stored {
		return "stored"
	}
	return "none"
}
