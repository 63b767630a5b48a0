// The main package for the mimicred executable.
package main

import (
	"github.com/Harris404/Mimic-Red/cmd"
)

func main() {
	cmd.Execute()
}
