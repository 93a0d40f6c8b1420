// Kintree - family graph analysis and exploration engine.
//
// Kintree loads an exported family dataset into a typed relationship
// graph, assigns generation depths for hierarchical layout, and answers
// lineage and shortest-connection queries interactively.
package main

import (
	"fmt"
	"os"

	"github.com/kintree/kintree-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
