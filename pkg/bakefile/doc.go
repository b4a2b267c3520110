// SPDX-License-Identifier: MPL-2.0

// Package bakefile defines the recipe format for imgbake: a declarative CUE
// document naming a base image, an ordered list of provisioning steps, and the
// default entry command of the resulting image.
//
// Step order is total and deterministic: steps are applied strictly in the
// order they are declared, each step's filesystem output becoming the next
// step's input. The package is responsible for parsing, validating, and
// generating recipes; turning a recipe into an image is the job of
// internal/assemble.
package bakefile
