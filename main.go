// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/imgbake/imgbake/cmd/imgbake"

func main() {
	cmd.Execute()
}
