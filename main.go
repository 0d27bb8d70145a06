// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/seamdriven/extpack/cmd/extpack"

func main() {
	cmd.Execute()
}
