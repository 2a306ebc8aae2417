// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the biovault binary.
//
// [Command] is a tree of named commands with pflag flag sets, help
// output, and did-you-mean suggestions for mistyped commands and
// flags. [FlagsFromParams] builds a flag set from a tagged params
// struct; embedding [JSONOutput] adds --json.
//
// [ExitCodeFor] maps errors to process exit codes by vaulterr
// category, so scripts can tell "biometrics unavailable" from "user
// canceled" from "nothing stored" without parsing messages.
// [NewCommandLogger] picks a text or JSON slog handler.
package cli
