// SPDX-License-Identifier: MPL-2.0

// Package config loads and persists the imgbake application configuration.
// Config files are CUE, validated against an embedded schema before being
// merged into viper on top of the built-in defaults.
package config
