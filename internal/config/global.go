// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir lookups, letting tests exercise the
// file-writing paths (Save, CreateDefaultConfig) against a temp directory.
// os.UserHomeDir() doesn't reliably respect the HOME environment variable on
// all platforms, so an explicit override beats env manipulation.
var configDirOverride string

// Reset clears the config directory override. Call from test cleanup.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride points ConfigDir at a custom directory until Reset.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
