// The main package for the wayback-news-harvester executable.
package main

import (
	"github.com/JakeFAU/wayback-news-harvester/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
