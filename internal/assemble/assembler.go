// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/imgbake/imgbake/internal/container"
	"github.com/imgbake/imgbake/pkg/bakefile"
	"github.com/imgbake/imgbake/pkg/types"
)

// Compile-time interface check
var _ Assembler = (*ImageAssembler)(nil)

type (
	// Assembler turns recipes into container images.
	// Implementations should cache assembled images by recipe content so an
	// unchanged recipe reuses its existing image.
	Assembler interface {
		// Assemble builds (or retrieves from cache) the image described by
		// the recipe. Steps execute strictly in declared order; the first
		// failing step aborts the build and no image is produced.
		Assemble(ctx context.Context, bf *bakefile.Bakefile) (*Result, error)

		// AssembledTag returns the tag the recipe would assemble to without
		// building anything.
		AssembledTag(bf *bakefile.Bakefile) (container.ImageTag, error)

		// IsAssembled reports whether the recipe's image already exists.
		IsAssembled(ctx context.Context, bf *bakefile.Bakefile) (bool, error)
	}

	// Result contains the output of an assembly.
	Result struct {
		// ImageTag is the tag of the assembled image (e.g., "imgbake:abc123")
		ImageTag container.ImageTag

		// Dockerfile is the rendered Dockerfile content the image was built from.
		Dockerfile string

		// Cached reports whether the image came from the cache instead of a build.
		Cached bool
	}
)

// ImageAssembler assembles images by rendering the recipe as a Dockerfile in
// a temporary build context and driving the engine's build.
//
// Assembled images are cached by a hash of the rendered Dockerfile, which
// captures the base image reference, environment, every step's compiled
// command, and the entry command. Any recipe change produces a new tag.
type ImageAssembler struct {
	engine container.Engine
	config *Config
	logger *log.Logger
}

// NewImageAssembler creates a new ImageAssembler.
func NewImageAssembler(engine container.Engine, cfg *Config) *ImageAssembler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ImageAssembler{
		engine: engine,
		config: cfg,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "assemble",
		}),
	}
}

// Config returns the assembler's configuration.
func (a *ImageAssembler) Config() *Config {
	return a.config
}

// Assemble implements Assembler.
func (a *ImageAssembler) Assemble(ctx context.Context, bf *bakefile.Bakefile) (*Result, error) {
	if err := bf.Validate(); err != nil {
		return nil, err
	}

	dockerfile, err := RenderDockerfile(bf)
	if err != nil {
		return nil, err
	}

	tag := a.assembledTag(dockerfile)

	// Check if cached image exists (skip if ForceRebuild is set)
	if !a.config.ForceRebuild {
		exists, _ := a.engine.ImageExists(ctx, tag) //nolint:errcheck // Error treated as "not found"
		if exists {
			a.logger.Debug("reusing assembled image", "tag", tag)
			return &Result{ImageTag: tag, Dockerfile: dockerfile, Cached: true}, nil
		}
	}

	// The base image must be present before the first step runs. A failed
	// pull aborts the whole assembly here, with zero steps executed.
	if err := a.ensureBaseImage(ctx, bf.Base); err != nil {
		return nil, err
	}

	if err := a.buildImage(ctx, bf, dockerfile, tag); err != nil {
		return nil, err
	}

	return &Result{ImageTag: tag, Dockerfile: dockerfile}, nil
}

// AssembledTag implements Assembler.
func (a *ImageAssembler) AssembledTag(bf *bakefile.Bakefile) (container.ImageTag, error) {
	dockerfile, err := RenderDockerfile(bf)
	if err != nil {
		return "", err
	}
	return a.assembledTag(dockerfile), nil
}

// IsAssembled implements Assembler.
func (a *ImageAssembler) IsAssembled(ctx context.Context, bf *bakefile.Bakefile) (bool, error) {
	tag, err := a.AssembledTag(bf)
	if err != nil {
		return false, err
	}
	return a.engine.ImageExists(ctx, tag)
}

// assembledTag constructs the image tag with optional suffix.
// When TagSuffix is set, the tag format is "imgbake:<hash>-<suffix>".
func (a *ImageAssembler) assembledTag(dockerfile string) container.ImageTag {
	sum := sha256.Sum256([]byte(dockerfile))
	hash := hex.EncodeToString(sum[:])[:12]
	if a.config.TagSuffix != "" {
		return container.ImageTag(fmt.Sprintf("imgbake:%s-%s", hash, a.config.TagSuffix))
	}
	return container.ImageTag(fmt.Sprintf("imgbake:%s", hash))
}

// ensureBaseImage makes sure the recipe's base image is locally available,
// pulling it when it isn't. Transient pull failures are retried with backoff;
// permanent ones (bad reference, auth) fail immediately.
func (a *ImageAssembler) ensureBaseImage(ctx context.Context, base bakefile.ImageRef) error {
	baseTag := container.ImageTag(base)

	exists, _ := a.engine.ImageExists(ctx, baseTag) //nolint:errcheck // Error treated as "not found"
	if exists {
		return nil
	}

	a.logger.Info("pulling base image", "image", base)

	return container.RetryWithBackoff(ctx, a.config.PullAttempts, a.config.PullBackoff,
		func(attempt int) (bool, error) {
			if attempt > 0 {
				a.logger.Warn("retrying base image pull", "image", base, "attempt", attempt+1)
			}
			err := a.engine.Pull(ctx, baseTag)
			if err == nil {
				return false, nil
			}
			return container.IsTransientError(err), err
		})
}

// buildImage writes the Dockerfile into a temporary build context and runs
// the engine build. The build is never retried: a failing step fails
// deterministically, and the engine's own output says which one.
func (a *ImageAssembler) buildImage(ctx context.Context, bf *bakefile.Bakefile, dockerfile string, tag container.ImageTag) error {
	buildCtx, cleanup, err := a.prepareBuildContext(dockerfile)
	if err != nil {
		return err
	}
	defer cleanup()

	a.logger.Info("baking image", "tag", tag, "base", bf.Base, "steps", len(bf.Steps))

	buildOpts := container.BuildOptions{
		ContextDir: types.FilesystemPath(buildCtx),
		Dockerfile: "Dockerfile",
		Tag:        tag,
		NoCache:    a.config.DisableCache || !bf.CacheableBuild(),
		Stdout:     a.config.Progress,
		Stderr:     a.config.Progress,
	}

	return a.engine.Build(ctx, buildOpts)
}

// prepareBuildContext creates a temporary directory holding the generated
// Dockerfile. The recipe never copies host files into the image, so the
// Dockerfile is the context's only content.
//
// Note: Docker installed via Snap has limited filesystem access: it cannot
// read /tmp or hidden directories under $HOME, but CAN read visible home
// directories. So the context parent is a visible directory in the user's
// home, with fallbacks for environments without one.
func (a *ImageAssembler) prepareBuildContext(dockerfile string) (buildContextDir string, cleanup func(), err error) {
	var parent string

	// Try HOME first, but verify it actually exists (handles misconfigured
	// environments and tests that point HOME at a nonexistent path).
	if home, homeErr := os.UserHomeDir(); homeErr == nil {
		if _, statErr := os.Stat(home); statErr == nil {
			parent = filepath.Join(home, "imgbake-build")
		}
	}

	if parent == "" {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			parent = filepath.Join(cwd, ".imgbake-build")
		} else {
			// Last resort: system temp (may fail with Snap Docker)
			parent = filepath.Join(os.TempDir(), "imgbake-build")
		}
	}

	if mkdirErr := os.MkdirAll(parent, 0o755); mkdirErr != nil {
		return "", nil, fmt.Errorf("failed to create build context parent directory: %w", mkdirErr)
	}

	tmpDir, err := os.MkdirTemp(parent, "ctx-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	cleanup = func() {
		_ = os.RemoveAll(tmpDir) // Cleanup temp dir; error non-critical
	}

	dockerfilePath := filepath.Join(tmpDir, "Dockerfile")
	if err := os.WriteFile(dockerfilePath, []byte(dockerfile), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write Dockerfile: %w", err)
	}

	return tmpDir, cleanup, nil
}
