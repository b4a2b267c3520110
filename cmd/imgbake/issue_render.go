// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/imgbake/imgbake/internal/config"
	"github.com/imgbake/imgbake/internal/container"
	"github.com/imgbake/imgbake/internal/issue"
)

// issueStyle maps the configured color scheme to a glamour style path.
func issueStyle() string {
	switch currentConfig().UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// renderIssue prints an issue's help page to stderr using the configured
// color scheme. Rendering failures are swallowed; the ActionableError that
// accompanies every page carries the essential message.
func renderIssue(id issue.Id) {
	rendered, err := issue.Get(id).Render(issueStyle())
	if err == nil {
		fmt.Fprint(os.Stderr, rendered)
	}
}

// assembleIssueId maps an assembly failure to its help page.
func assembleIssueId(err error) (issue.Id, bool) {
	switch {
	case errors.Is(err, container.ErrPullFailed):
		return issue.BasePullFailedId, true
	case errors.Is(err, container.ErrBuildFailed):
		return issue.StepFailedId, true
	default:
		return 0, false
	}
}
