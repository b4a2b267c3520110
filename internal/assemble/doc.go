// SPDX-License-Identifier: MPL-2.0

// Package assemble turns a parsed recipe into a container image. The
// ImageAssembler renders the recipe as a Dockerfile, makes sure the base
// image is present (pulling it when needed), then drives the container
// engine's build.
//
// Assembled images are cached by a hash of the rendered Dockerfile: an
// unchanged recipe reuses the existing image instead of rebuilding.
package assemble
