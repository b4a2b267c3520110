// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction layer for container engines
// (Docker/Podman). The assembler drives image pulls and builds through the
// Engine interface; the run command uses it to start interactive containers.
package container
