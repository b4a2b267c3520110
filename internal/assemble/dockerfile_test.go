// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"strings"
	"testing"

	"github.com/imgbake/imgbake/pkg/bakefile"
)

func TestRenderDockerfile_DefaultRecipe(t *testing.T) {
	t.Parallel()

	got, err := RenderDockerfile(bakefile.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantLines := []string{
		"FROM debian:jessie",
		`ENV DEBIAN_FRONTEND="noninteractive"`,
		"RUN echo 'APT::Keep-Downloaded-Packages \"false\";' > /etc/apt/apt.conf.d/90imgbake-no-cache && apt-get clean",
		"RUN apt-get update && apt-get install -y git python-pip && apt-get clean",
		"RUN apt-get update && apt-get install -y wget && apt-get clean",
		"RUN pip install git+https://github.com/ross-urban/aws-ecs-service-discovery.git#egg=ecs_discovery && apt-get clean",
		"RUN pip install python-etcd jinja2 requests && apt-get clean",
		"CMD bash",
	}
	for _, line := range wantLines {
		if !strings.Contains(got, line) {
			t.Errorf("rendered Dockerfile missing line %q\n\n%s", line, got)
		}
	}

	// Layer order must match declared step order.
	prev := -1
	for _, line := range wantLines {
		idx := strings.Index(got, line)
		if idx < prev {
			t.Errorf("line %q out of order", line)
		}
		prev = idx
	}
}

func TestRenderDockerfile_NoPostStep(t *testing.T) {
	t.Parallel()

	bf := &bakefile.Bakefile{
		Base: "debian:jessie",
		Steps: []bakefile.Step{
			{Kind: bakefile.StepRun, Command: "echo hello", Cacheable: true},
		},
	}

	got, err := RenderDockerfile(bf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "RUN echo hello\n") {
		t.Errorf("step command should render without a hook:\n%s", got)
	}
}

func TestRenderDockerfile_StepLabels(t *testing.T) {
	t.Parallel()

	bf := &bakefile.Bakefile{
		Base: "debian:jessie",
		Steps: []bakefile.Step{
			{Name: "greeting", Kind: bakefile.StepRun, Command: "echo hi", Cacheable: true},
			{Kind: bakefile.StepRun, Command: "echo bye", Cacheable: true},
		},
	}

	got, err := RenderDockerfile(bf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "# greeting\n") {
		t.Errorf("named step should use its name as label:\n%s", got)
	}
	if !strings.Contains(got, "# run step 2\n") {
		t.Errorf("unnamed step should get a positional label:\n%s", got)
	}
}

func TestRenderDockerfile_Deterministic(t *testing.T) {
	t.Parallel()

	bf := bakefile.Default()
	bf.Env["LANG"] = "C.UTF-8"
	bf.Env["AAA"] = "first"

	a, err := RenderDockerfile(bf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 10 {
		b, err := RenderDockerfile(bf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a != b {
			t.Fatal("rendering is not deterministic")
		}
	}

	// Sorted env keys regardless of map iteration order.
	if strings.Index(a, "ENV AAA=") > strings.Index(a, "ENV LANG=") {
		t.Error("env lines are not sorted")
	}
}

func TestRenderDockerfile_InvalidStep(t *testing.T) {
	t.Parallel()

	bf := &bakefile.Bakefile{
		Base:  "debian:jessie",
		Steps: []bakefile.Step{{Kind: bakefile.StepRun}},
	}
	if _, err := RenderDockerfile(bf); err == nil {
		t.Fatal("expected error for run step without command")
	}
}
