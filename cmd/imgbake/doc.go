// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for imgbake.
//
// This package implements the Cobra command hierarchy for the imgbake CLI:
// the root command, recipe scaffolding and validation, image assembly,
// lockfile management, and configuration utilities.
package cmd
