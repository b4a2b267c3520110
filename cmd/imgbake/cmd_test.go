// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/imgbake/imgbake/internal/config"
	"github.com/imgbake/imgbake/internal/container"
	"github.com/imgbake/imgbake/internal/issue"
	"github.com/imgbake/imgbake/internal/lockfile"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

// newTestCommand returns a throwaway cobra command with captured output,
// suitable for calling RunE handlers directly.
func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd, stdout, stderr
}

// writeRecipe writes a minimal valid recipe into dir and returns its path.
func writeRecipe(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, bakefile.DefaultFileName)
	content := bakefile.GenerateCUE(bakefile.Default())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write recipe: %v", err)
	}
	return path
}

func TestInit_CreatesBakefile(t *testing.T) {
	t.Chdir(t.TempDir())
	initForce = false

	cmd, stdout, _ := newTestCommand()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(bakefile.DefaultFileName); err != nil {
		t.Fatalf("bakefile not created: %v", err)
	}
	if !strings.Contains(stdout.String(), "Created") {
		t.Errorf("expected creation message, got %q", stdout.String())
	}

	// The scaffold must parse and validate.
	if _, err := bakefile.Load(bakefile.DefaultFileName); err != nil {
		t.Errorf("scaffold does not load: %v", err)
	}
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	t.Chdir(t.TempDir())
	initForce = false

	cmd, _, _ := newTestCommand()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmd, _, _ = newTestCommand()
	err := runInit(cmd, nil)
	if err == nil {
		t.Fatal("expected error for existing bakefile")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("unexpected error: %v", err)
	}

	initForce = true
	t.Cleanup(func() { initForce = false })
	cmd, _, _ = newTestCommand()
	if err := runInit(cmd, nil); err != nil {
		t.Errorf("--force should overwrite: %v", err)
	}
}

func TestRender_PrintsDockerfile(t *testing.T) {
	dir := t.TempDir()
	renderFile = writeRecipe(t, dir)
	renderNoLock = false
	t.Cleanup(func() { renderFile = bakefile.DefaultFileName })

	cmd, stdout, _ := newTestCommand()
	if err := runRender(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "FROM debian:jessie") {
		t.Errorf("missing FROM line in output:\n%s", out)
	}
	if !strings.Contains(out, "CMD bash") {
		t.Errorf("missing CMD line in output:\n%s", out)
	}
}

func TestRender_AppliesLockfilePins(t *testing.T) {
	dir := t.TempDir()
	renderFile = writeRecipe(t, dir)
	renderNoLock = false
	t.Cleanup(func() { renderFile = bakefile.DefaultFileName })

	lf := &lockfile.Lockfile{
		Version: lockfile.CurrentVersion,
		Base:    "debian:jessie",
		Packages: []lockfile.Package{
			{Manager: "apt", Name: "wget", Pin: "1.16-1"},
		},
	}
	if err := lockfile.Save(filepath.Join(dir, lockfile.DefaultFileName), lf); err != nil {
		t.Fatalf("save lockfile: %v", err)
	}

	cmd, stdout, _ := newTestCommand()
	if err := runRender(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "wget=1.16-1") {
		t.Errorf("lockfile pin not applied:\n%s", stdout.String())
	}

	// --no-lock ignores the pin.
	renderNoLock = true
	t.Cleanup(func() { renderNoLock = false })
	cmd, stdout, _ = newTestCommand()
	if err := runRender(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(stdout.String(), "wget=1.16-1") {
		t.Errorf("--no-lock should skip pins:\n%s", stdout.String())
	}
}

func TestValidate_ValidRecipe(t *testing.T) {
	dir := t.TempDir()
	path := writeRecipe(t, dir)
	validateNoLock = false

	cmd, stdout, _ := newTestCommand()
	if err := runValidate(cmd, []string{path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Bakefile is valid") {
		t.Errorf("missing success message:\n%s", stdout.String())
	}
}

func TestValidate_InvalidRecipeExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, bakefile.DefaultFileName)
	if err := os.WriteFile(path, []byte(`base: ""`), 0o644); err != nil {
		t.Fatalf("write recipe: %v", err)
	}
	validateNoLock = false

	cmd, _, stderr := newTestCommand()
	err := runValidate(cmd, []string{path})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Code != 1 {
		t.Errorf("exit code = %d, want 1", exitErr.Code)
	}
	if !strings.Contains(stderr.String(), "Validation failed") {
		t.Errorf("missing failure message:\n%s", stderr.String())
	}
}

func TestValidate_StaleLockfileFails(t *testing.T) {
	dir := t.TempDir()
	path := writeRecipe(t, dir)
	validateNoLock = false

	lf := &lockfile.Lockfile{
		Version: lockfile.CurrentVersion,
		Base:    "debian:jessie",
		Packages: []lockfile.Package{
			{Manager: "apt", Name: "removed-tool", Pin: "1.0"},
		},
	}
	if err := lockfile.Save(filepath.Join(dir, lockfile.DefaultFileName), lf); err != nil {
		t.Fatalf("save lockfile: %v", err)
	}

	cmd, _, stderr := newTestCommand()
	err := runValidate(cmd, []string{path})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if !strings.Contains(stderr.String(), "Lockfile consistency check failed") {
		t.Errorf("missing lockfile failure message:\n%s", stderr.String())
	}
}

func TestLock_WritesAndChecksLockfile(t *testing.T) {
	dir := t.TempDir()
	lockFile = writeRecipe(t, dir)
	lockCheck = false
	t.Cleanup(func() {
		lockFile = bakefile.DefaultFileName
		lockCheck = false
	})

	cmd, stdout, _ := newTestCommand()
	if err := runLock(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Wrote") {
		t.Errorf("missing write message:\n%s", stdout.String())
	}

	lockPath := filepath.Join(dir, lockfile.DefaultFileName)
	lf, err := lockfile.Load(lockPath)
	if err != nil {
		t.Fatalf("load written lockfile: %v", err)
	}
	if len(lf.Packages) == 0 {
		t.Error("expected recorded packages")
	}

	// The freshly written lockfile passes --check.
	lockCheck = true
	cmd, stdout, _ = newTestCommand()
	if err := runLock(cmd, nil); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "matches") {
		t.Errorf("missing check message:\n%s", stdout.String())
	}
}

func TestLock_CheckWithoutLockfileFails(t *testing.T) {
	dir := t.TempDir()
	lockFile = writeRecipe(t, dir)
	lockCheck = true
	t.Cleanup(func() {
		lockFile = bakefile.DefaultFileName
		lockCheck = false
	})

	cmd, _, _ := newTestCommand()
	err := runLock(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "no lockfile") {
		t.Errorf("expected missing-lockfile error, got %v", err)
	}
}

func TestLoadRecipe_MissingFile(t *testing.T) {
	_, err := loadRecipe(filepath.Join(t.TempDir(), "absent.cue"), false)
	if err == nil {
		t.Fatal("expected error for missing recipe")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *issue.ActionableError, got %T", err)
	}
	if !ae.HasSuggestions() {
		t.Error("expected suggestions on the error")
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("plain error = %q", got)
	}

	actionable := issue.NewErrorContext().
		WithOperation("bake image").
		WithSuggestion("Check the engine is running").
		Wrap(errors.New("boom")).
		BuildError()
	got := formatErrorForDisplay(actionable, false)
	if !strings.Contains(got, "bake image") {
		t.Errorf("expected operation in formatted error, got %q", got)
	}
}

func TestIssueStyle_FollowsColorScheme(t *testing.T) {
	t.Cleanup(func() { loadedConfig = nil })

	tests := []struct {
		scheme config.ColorScheme
		want   string
	}{
		{config.ColorSchemeDark, "dark"},
		{config.ColorSchemeLight, "light"},
		{config.ColorSchemeAuto, "auto"},
	}

	for _, tt := range tests {
		cfg := config.DefaultConfig()
		cfg.UI.ColorScheme = tt.scheme
		loadedConfig = cfg
		if got := issueStyle(); got != tt.want {
			t.Errorf("issueStyle() with %q = %q, want %q", tt.scheme, got, tt.want)
		}
	}
}

func TestIssueStyle_DefaultsToAutoWithoutConfig(t *testing.T) {
	t.Cleanup(func() { loadedConfig = nil })
	loadedConfig = nil

	if got := issueStyle(); got != "auto" {
		t.Errorf("issueStyle() = %q, want auto", got)
	}
}

func TestAssembleIssueId(t *testing.T) {
	t.Parallel()

	id, ok := assembleIssueId(fmt.Errorf("assembly: %w", container.ErrPullFailed))
	if !ok || id != issue.BasePullFailedId {
		t.Errorf("pull failure mapped to (%v, %v), want (BasePullFailedId, true)", id, ok)
	}

	id, ok = assembleIssueId(fmt.Errorf("assembly: %w", container.ErrBuildFailed))
	if !ok || id != issue.StepFailedId {
		t.Errorf("build failure mapped to (%v, %v), want (StepFailedId, true)", id, ok)
	}

	if _, ok := assembleIssueId(errors.New("unrelated")); ok {
		t.Error("unrelated error should not map to an issue page")
	}
}

func TestGetVersionString(t *testing.T) {
	if got := getVersionString(); !strings.Contains(got, "dev") {
		t.Errorf("dev build version = %q", got)
	}
}
