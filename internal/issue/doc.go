// SPDX-License-Identifier: MPL-2.0

// Package issue provides structured, user-facing error reporting: actionable
// errors that carry operation/resource context plus suggestions, and a
// registry of known failure modes rendered as markdown help pages.
package issue
