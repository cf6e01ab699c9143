// Graphpanel - interactive graph visualization panel.
//
// Graphpanel shows the dependency graph produced by an analysis engine in a
// rendering surface, lets the user explore it and exports it as a PNG image
// or a portable JSON snapshot.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/graphpanel/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
