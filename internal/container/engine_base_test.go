// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/imgbake/imgbake/internal/issue"
)

// failingExec returns commands that always fail to start.
func failingExec(ctx context.Context, name string, arg ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "/nonexistent/imgbake-fake-engine")
}

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	e := NewBaseCLIEngine("/usr/bin/docker", WithName("docker"))

	tests := []struct {
		name string
		opts BuildOptions
		want []string
	}{
		{
			name: "minimal",
			opts: BuildOptions{ContextDir: "/tmp/ctx", Tag: "imgbake:abc123"},
			want: []string{"build", "-t", "imgbake:abc123", "/tmp/ctx"},
		},
		{
			name: "relative dockerfile resolved against context",
			opts: BuildOptions{ContextDir: "/tmp/ctx", Dockerfile: "Dockerfile", Tag: "imgbake:abc123"},
			want: []string{"build", "-f", "/tmp/ctx/Dockerfile", "-t", "imgbake:abc123", "/tmp/ctx"},
		},
		{
			name: "absolute dockerfile used as-is",
			opts: BuildOptions{ContextDir: "/tmp/ctx", Dockerfile: "/elsewhere/Dockerfile"},
			want: []string{"build", "-f", "/elsewhere/Dockerfile", "/tmp/ctx"},
		},
		{
			name: "no-cache",
			opts: BuildOptions{ContextDir: "/tmp/ctx", Tag: "imgbake:abc123", NoCache: true},
			want: []string{"build", "-t", "imgbake:abc123", "--no-cache", "/tmp/ctx"},
		},
		{
			name: "forced pull",
			opts: BuildOptions{ContextDir: "/tmp/ctx", Tag: "imgbake:abc123", Pull: true},
			want: []string{"build", "-t", "imgbake:abc123", "--pull", "/tmp/ctx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := e.BuildArgs(tt.opts)
			if !slices.Equal(got, tt.want) {
				t.Errorf("BuildArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunArgs(t *testing.T) {
	t.Parallel()

	e := NewBaseCLIEngine("/usr/bin/docker", WithName("docker"))

	got := e.RunArgs(RunOptions{
		Image:       "imgbake:abc123",
		Command:     []string{"bash"},
		Remove:      true,
		Interactive: true,
		TTY:         true,
	})
	want := []string{"run", "--rm", "-i", "-t", "imgbake:abc123", "bash"}
	if !slices.Equal(got, want) {
		t.Errorf("RunArgs() = %v, want %v", got, want)
	}
}

func TestRunArgs_VolumesAndName(t *testing.T) {
	t.Parallel()

	e := NewBaseCLIEngine("/usr/bin/docker")

	got := e.RunArgs(RunOptions{
		Image:   "imgbake:abc123",
		Name:    "bake-shell",
		Volumes: []string{"/src:/workspace"},
	})
	want := []string{"run", "--name", "bake-shell", "-v", "/src:/workspace", "imgbake:abc123"}
	if !slices.Equal(got, want) {
		t.Errorf("RunArgs() = %v, want %v", got, want)
	}
}

func TestRunArgs_TransformerApplied(t *testing.T) {
	t.Parallel()

	e := NewBaseCLIEngine("/usr/bin/podman", WithRunArgsTransformer(func(args []string) []string {
		return append([]string{args[0], "--injected"}, args[1:]...)
	}))

	got := e.RunArgs(RunOptions{Image: "imgbake:abc123"})
	want := []string{"run", "--injected", "imgbake:abc123"}
	if !slices.Equal(got, want) {
		t.Errorf("RunArgs() = %v, want %v", got, want)
	}
}

func TestPullArgs(t *testing.T) {
	t.Parallel()

	e := NewBaseCLIEngine("/usr/bin/docker")
	got := e.PullArgs("debian:jessie")
	want := []string{"pull", "debian:jessie"}
	if !slices.Equal(got, want) {
		t.Errorf("PullArgs() = %v, want %v", got, want)
	}
}

func TestRemoveImageArgs(t *testing.T) {
	t.Parallel()

	e := NewBaseCLIEngine("/usr/bin/docker")

	got := e.RemoveImageArgs("imgbake:abc123", false)
	want := []string{"rmi", "imgbake:abc123"}
	if !slices.Equal(got, want) {
		t.Errorf("RemoveImageArgs() = %v, want %v", got, want)
	}

	got = e.RemoveImageArgs("imgbake:abc123", true)
	want = []string{"rmi", "-f", "imgbake:abc123"}
	if !slices.Equal(got, want) {
		t.Errorf("RemoveImageArgs(force) = %v, want %v", got, want)
	}
}

func TestImageTag_Validate(t *testing.T) {
	t.Parallel()

	if err := ImageTag("imgbake:abc123").Validate(); err != nil {
		t.Errorf("valid tag rejected: %v", err)
	}
	if err := ImageTag("").Validate(); !errors.Is(err, ErrInvalidImageTag) {
		t.Errorf("empty tag should wrap ErrInvalidImageTag, got %v", err)
	}
	if err := ImageTag("img bake").Validate(); !errors.Is(err, ErrInvalidImageTag) {
		t.Errorf("whitespace tag should wrap ErrInvalidImageTag, got %v", err)
	}
}

func TestContainerID_Validate(t *testing.T) {
	t.Parallel()

	if err := ContainerID("abc123").Validate(); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	if err := ContainerID("  ").Validate(); !errors.Is(err, ErrInvalidContainerID) {
		t.Errorf("blank id should wrap ErrInvalidContainerID, got %v", err)
	}
}

func TestBuildOptions_Validate(t *testing.T) {
	t.Parallel()

	opts := BuildOptions{ContextDir: "/tmp/ctx", Tag: "imgbake:abc123"}
	if err := opts.Validate(); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}

	opts.ContextDir = ""
	if err := opts.Validate(); err == nil {
		t.Error("expected error for empty context dir")
	}

	opts.ContextDir = "/tmp/ctx"
	opts.Tag = "bad tag"
	if err := opts.Validate(); !errors.Is(err, ErrInvalidImageTag) {
		t.Errorf("expected ErrInvalidImageTag, got %v", err)
	}
}

func TestPull_SuggestionsNameTheEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		engine Engine
		want   string
	}{
		{"docker", NewDockerEngine(WithExecCommand(failingExec)), "docker login"},
		{"podman", NewPodmanEngine(WithExecCommand(failingExec)), "podman login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.engine.Pull(context.Background(), "debian:jessie")
			if err == nil {
				t.Fatal("expected pull to fail")
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *issue.ActionableError, got %T", err)
			}
			found := false
			for _, s := range ae.Suggestions {
				if strings.Contains(s, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("suggestions %q missing %q", ae.Suggestions, tt.want)
			}
		})
	}
}

func TestPull_WrapsErrPullFailed(t *testing.T) {
	t.Parallel()

	e := NewDockerEngine(WithExecCommand(failingExec))
	err := e.Pull(context.Background(), "debian:jessie")
	if !errors.Is(err, ErrPullFailed) {
		t.Errorf("expected ErrPullFailed in chain, got %v", err)
	}
	if errors.Is(err, ErrBuildFailed) {
		t.Error("pull failure must not classify as build failure")
	}
}

func TestBuild_WrapsErrBuildFailed(t *testing.T) {
	t.Parallel()

	e := NewDockerEngine(WithExecCommand(failingExec))
	err := e.Build(context.Background(), BuildOptions{
		ContextDir: "/tmp/ctx",
		Tag:        "imgbake:abc123",
	})
	if !errors.Is(err, ErrBuildFailed) {
		t.Errorf("expected ErrBuildFailed in chain, got %v", err)
	}
	if errors.Is(err, ErrPullFailed) {
		t.Error("build failure must not classify as pull failure")
	}
}

func TestAddKeepIDUserns_OnlyTouchesRunCommands(t *testing.T) {
	t.Parallel()

	got := addKeepIDUserns([]string{"build", "-t", "x", "."})
	want := []string{"build", "-t", "x", "."}
	if !slices.Equal(got, want) {
		t.Errorf("addKeepIDUserns() = %v, want %v", got, want)
	}
}
