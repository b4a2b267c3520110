// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared helpers for parsing and validating CUE
// documents against embedded schemas. Both the bakefile recipe format and the
// tool configuration file are CUE; this package centralizes the
// compile-unify-validate-decode flow and the error formatting they share.
package cueutil
