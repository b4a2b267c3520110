// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"

	"github.com/imgbake/imgbake/pkg/types"
)

// Engine defines the interface for container operations.
type Engine interface {
	// Name returns the engine name (docker or podman)
	Name() string
	// Available checks if the engine is available on the system
	Available() bool
	// Version returns the engine version
	Version(ctx context.Context) (string, error)
	// BinaryPath returns the path to the engine binary
	BinaryPath() string

	// Pull fetches an image from its registry
	Pull(ctx context.Context, image ImageTag) error
	// Build builds an image from a Dockerfile
	Build(ctx context.Context, opts BuildOptions) error
	// Run runs a command in a container
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	// ImageExists checks if an image exists locally
	ImageExists(ctx context.Context, image ImageTag) (bool, error)
	// RemoveImage removes an image
	RemoveImage(ctx context.Context, image ImageTag, force bool) error
}

// BuildOptions contains options for building an image.
type BuildOptions struct {
	// ContextDir is the build context directory
	ContextDir types.FilesystemPath
	// Dockerfile is the path to the Dockerfile (relative to ContextDir)
	Dockerfile types.FilesystemPath
	// Tag is the image tag
	Tag ImageTag
	// NoCache disables the engine's layer cache
	NoCache bool
	// Pull forces the engine to re-pull the base image
	Pull bool
	// Stdout is where to write build output
	Stdout io.Writer
	// Stderr is where to write build errors
	Stderr io.Writer
}

// Validate returns an error if any typed field of the BuildOptions is invalid.
func (o BuildOptions) Validate() error {
	if valid, errs := o.ContextDir.IsValid(); !valid {
		return fmt.Errorf("build context: %w", errs[0])
	}
	if err := o.Tag.Validate(); err != nil {
		return err
	}
	return nil
}

// RunOptions contains options for running a container.
type RunOptions struct {
	// Image is the image to run
	Image ImageTag
	// Command overrides the image's default command (optional)
	Command []string
	// Env contains environment variables
	Env map[string]string
	// Volumes are volume mounts in "host:container" format
	Volumes []string
	// Remove automatically removes the container after exit
	Remove bool
	// Name is the container name (optional)
	Name string
	// Stdin is the standard input
	Stdin io.Reader
	// Stdout is where to write standard output
	Stdout io.Writer
	// Stderr is where to write standard error
	Stderr io.Writer
	// Interactive keeps stdin open
	Interactive bool
	// TTY allocates a pseudo-TTY
	TTY bool
}

// Validate returns an error if any typed field of the RunOptions is invalid.
func (o RunOptions) Validate() error {
	return o.Image.Validate()
}

// RunResult contains the result of running a container.
type RunResult struct {
	// ExitCode is the container process's exit code
	ExitCode types.ExitCode
	// Error contains any infrastructure error (binary missing, etc.)
	Error error
}

// EngineType identifies the container engine type.
type EngineType string

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

// ErrEngineNotAvailable is returned when a container engine is not available.
type ErrEngineNotAvailable struct {
	Engine string
	Reason string
}

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a new container engine based on preference, falling back
// to the other engine when the preferred one is not installed.
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		dockerEngine := NewDockerEngine()
		if dockerEngine.Available() {
			return dockerEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		podmanEngine := NewPodmanEngine()
		if podmanEngine.Available() {
			return podmanEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine tries to find an available container engine.
func AutoDetectEngine() (Engine, error) {
	// Podman first (more commonly available in rootless setups)
	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	return nil, &ErrEngineNotAvailable{
		Engine: "any",
		Reason: "no container engine (podman or docker) is available on this system",
	}
}
