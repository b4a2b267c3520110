// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/imgbake/imgbake/pkg/cueutil"
)

//go:embed bakefile_schema.cue
var bakefileSchema []byte

// schemaRoot is the root definition validated against user recipes.
const schemaRoot = "#Bakefile"

// Parse parses and validates CUE recipe data. The filename is used only for
// error messages. The returned Bakefile has passed both schema validation and
// the semantic checks in Validate.
func Parse(data []byte, filename string) (*Bakefile, error) {
	result, err := cueutil.ParseAndDecode[Bakefile](bakefileSchema, data, schemaRoot,
		cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}

	bf := result.Value
	if err := bf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return bf, nil
}

// Load reads and parses the recipe at path.
func Load(path string) (*Bakefile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bakefile: %w", err)
	}
	return Parse(data, path)
}
