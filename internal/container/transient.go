// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/imgbake/imgbake/pkg/types"
)

// IsTransientError reports whether err is a transient container engine error
// that may succeed on retry. It covers failures seen during image pulls,
// including registry timeouts, DNS hiccups, storage driver glitches, and
// generic engine errors (exit code 125).
//
// Context cancellation and deadline errors are explicitly non-transient because
// retrying a cancelled operation is never useful. Build failures are likewise
// never transient here: a failing step fails deterministically.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are never transient — the caller explicitly stopped the operation.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Generic container engine errors (e.g., Podman/Docker internal failure).
	// These are often transient storage or cgroup issues.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && types.ExitCode(exitErr.ExitCode()).IsTransient() {
		return true
	}

	errStr := err.Error()

	// Registry and network errors during image pull.
	if strings.Contains(errStr, "Temporary failure resolving") ||
		strings.Contains(errStr, "Could not resolve host") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "connection timed out") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "TLS handshake timeout") {
		return true
	}

	// Storage driver errors (overlay mount races on rootless Podman).
	if strings.Contains(errStr, "error creating overlay mount") ||
		strings.Contains(errStr, "error mounting layer") {
		return true
	}

	return false
}
