// SPDX-License-Identifier: MPL-2.0

// Integration tests that assemble real images. These require Docker or
// Podman to be available and are skipped in short mode.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/imgbake/imgbake/internal/container"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
// Returns true if containers are available, false otherwise.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// integrationEngine detects an available engine or skips the test.
// Engine detection runs through our own probing first; testcontainers-go's
// detection can panic on hosts without a daemon socket.
func integrationEngine(t *testing.T) container.Engine {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	engine, err := container.AutoDetectEngine()
	if err != nil {
		t.Skipf("skipping integration test: no container engine available: %v", err)
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping integration test: testcontainers provider not available")
	}

	return engine
}

// integrationRecipe returns a tiny recipe that assembles quickly.
func integrationRecipe() *bakefile.Bakefile {
	return &bakefile.Bakefile{
		Base: "alpine:latest",
		Env:  map[string]string{"BAKED_BY": "imgbake-test"},
		Steps: []bakefile.Step{
			{
				Name:      "marker",
				Kind:      bakefile.StepRun,
				Cacheable: true,
				Command:   "echo baked > /marker.txt",
			},
		},
		Entry: "cat /marker.txt",
	}
}

func TestImageAssembler_Integration(t *testing.T) {
	engine := integrationEngine(t)

	suffix := fmt.Sprintf("it%d", time.Now().UnixNano())
	cfg := DefaultConfig()
	cfg.Apply(
		WithProgress(io.Discard),
		WithTagSuffix(suffix),
	)
	assembler := NewImageAssembler(engine, cfg)

	ctx := context.Background()
	bf := integrationRecipe()

	result, err := assembler.Assemble(ctx, bf)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if result.Cached {
		t.Error("first assembly should not be cached")
	}
	t.Cleanup(func() {
		_ = engine.RemoveImage(context.Background(), result.ImageTag, true)
	})

	exists, err := engine.ImageExists(ctx, result.ImageTag)
	if err != nil {
		t.Fatalf("ImageExists() error: %v", err)
	}
	if !exists {
		t.Fatalf("assembled image %s not found", result.ImageTag)
	}

	// Steps ran: the marker file is in the image.
	var stdout, stderr bytes.Buffer
	runResult, err := engine.Run(ctx, container.RunOptions{
		Image:   result.ImageTag,
		Command: []string{"cat", "/marker.txt"},
		Remove:  true,
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !runResult.ExitCode.IsSuccess() {
		t.Fatalf("Run() exit code = %d, stderr: %s", runResult.ExitCode, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != "baked" {
		t.Errorf("marker content = %q, want %q", got, "baked")
	}

	// Env is baked into the image.
	stdout.Reset()
	stderr.Reset()
	runResult, err = engine.Run(ctx, container.RunOptions{
		Image:   result.ImageTag,
		Command: []string{"sh", "-c", "echo $BAKED_BY"},
		Remove:  true,
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "imgbake-test" {
		t.Errorf("BAKED_BY = %q, want %q", got, "imgbake-test")
	}

	// An unchanged recipe reuses the assembled image.
	second, err := assembler.Assemble(ctx, bf)
	if err != nil {
		t.Fatalf("second Assemble() error: %v", err)
	}
	if !second.Cached {
		t.Error("second assembly should come from the cache")
	}
	if second.ImageTag != result.ImageTag {
		t.Errorf("tag changed across identical assemblies: %s vs %s", second.ImageTag, result.ImageTag)
	}
}

func TestImageAssembler_Integration_FailingStepAborts(t *testing.T) {
	engine := integrationEngine(t)

	suffix := fmt.Sprintf("it%d", time.Now().UnixNano())
	cfg := DefaultConfig()
	cfg.Apply(
		WithProgress(io.Discard),
		WithTagSuffix(suffix),
	)
	assembler := NewImageAssembler(engine, cfg)

	ctx := context.Background()
	bf := &bakefile.Bakefile{
		Base: "alpine:latest",
		Steps: []bakefile.Step{
			{Kind: bakefile.StepRun, Cacheable: true, Command: "echo first > /first.txt"},
			{Kind: bakefile.StepRun, Cacheable: true, Command: "exit 7"},
			{Kind: bakefile.StepRun, Cacheable: true, Command: "echo unreachable > /unreachable.txt"},
		},
		Entry: "sh",
	}

	tag, err := assembler.AssembledTag(bf)
	if err != nil {
		t.Fatalf("AssembledTag() error: %v", err)
	}

	if _, err := assembler.Assemble(ctx, bf); err == nil {
		t.Fatal("expected assembly to fail on the failing step")
	}

	// No image is produced on failure.
	exists, err := engine.ImageExists(ctx, tag)
	if err != nil {
		t.Fatalf("ImageExists() error: %v", err)
	}
	if exists {
		t.Cleanup(func() {
			_ = engine.RemoveImage(context.Background(), tag, true)
		})
		t.Error("failed assembly should not leave a tagged image")
	}
}

func TestImageAssembler_Integration_TagSuffixIsolation(t *testing.T) {
	engine := integrationEngine(t)

	bf := integrationRecipe()

	a := NewImageAssembler(engine, func() *Config {
		c := DefaultConfig()
		c.Apply(WithProgress(io.Discard), WithTagSuffix("suffix-a"))
		return c
	}())
	b := NewImageAssembler(engine, func() *Config {
		c := DefaultConfig()
		c.Apply(WithProgress(io.Discard), WithTagSuffix("suffix-b"))
		return c
	}())

	tagA, err := a.AssembledTag(bf)
	if err != nil {
		t.Fatalf("AssembledTag() error: %v", err)
	}
	tagB, err := b.AssembledTag(bf)
	if err != nil {
		t.Fatalf("AssembledTag() error: %v", err)
	}
	if tagA == tagB {
		t.Errorf("suffixed tags should differ, both are %s", tagA)
	}
}
