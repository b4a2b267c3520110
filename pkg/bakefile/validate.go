// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrShellSyntax is the sentinel error wrapped by ShellSyntaxError.
var ErrShellSyntax = errors.New("shell syntax error")

// ShellSyntaxError is returned when a step command or the post-step hook does
// not parse as POSIX shell. Catching this at validation time means a typo
// fails before any image layer is built, not halfway through a build.
type ShellSyntaxError struct {
	// Context identifies where the command came from (e.g., "steps[2]").
	Context string
	// Command is the offending command text.
	Command string
	// Cause is the parser error.
	Cause error
}

// Error implements the error interface.
func (e *ShellSyntaxError) Error() string {
	return fmt.Sprintf("%s: shell syntax error: %v", e.Context, e.Cause)
}

// Unwrap returns ErrShellSyntax for errors.Is() compatibility.
func (e *ShellSyntaxError) Unwrap() error { return ErrShellSyntax }

// Validate performs the semantic checks that the CUE schema cannot express:
// image reference shape, per-kind required fields, step name uniqueness, and
// shell syntax of every command that will end up in a layer.
func (b *Bakefile) Validate() error {
	if err := b.Base.Validate(); err != nil {
		return err
	}

	if valid, errs := b.Description.IsValid(); !valid {
		return errs[0]
	}

	seenNames := make(map[string]int)
	for i, step := range b.Steps {
		if err := step.Kind.Validate(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}

		if step.Name != "" {
			if prev, dup := seenNames[step.Name]; dup {
				return fmt.Errorf("steps[%d]: duplicate step name %q (same as steps[%d])", i, step.Name, prev)
			}
			seenNames[step.Name] = i
		}

		cmd, err := step.ShellCommand()
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}

		// Package names must be plain identifiers; anything else would be
		// spliced into the compiled install command unquoted.
		if step.Kind == StepApt || step.Kind == StepPip {
			for _, p := range step.Packages {
				if err := validatePackageName(p.Name); err != nil {
					return fmt.Errorf("steps[%d]: %w", i, err)
				}
			}
		}

		if step.Kind == StepPipVCS {
			if !strings.HasPrefix(step.URL, "https://") && !strings.HasPrefix(step.URL, "git://") {
				return fmt.Errorf("steps[%d]: vcs url %q must use https:// or git://", i, step.URL)
			}
		}

		if err := checkShellSyntax(cmd, fmt.Sprintf("steps[%d]", i)); err != nil {
			return err
		}
	}

	if b.PostStep != "" {
		if err := checkShellSyntax(b.PostStep, "post_step"); err != nil {
			return err
		}
	}

	if err := checkShellSyntax(b.EntryCommand(), "entry"); err != nil {
		return err
	}

	return nil
}

// checkShellSyntax parses cmd as POSIX shell without executing it.
func checkShellSyntax(cmd, context string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(strings.NewReader(cmd), context); err != nil {
		return &ShellSyntaxError{Context: context, Command: cmd, Cause: err}
	}
	return nil
}

// validatePackageName rejects package names that could escape the compiled
// install command. Package managers accept letters, digits, and a small set
// of punctuation; shell metacharacters are never legitimate.
func validatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name must be non-empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '+':
		default:
			return fmt.Errorf("package name %q contains invalid character %q", name, r)
		}
	}
	return nil
}
