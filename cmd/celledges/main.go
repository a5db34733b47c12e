// Command celledges computes and prints the cell edge addressing of
// polyhedral meshes.
package main

import (
	"fmt"
	"os"

	"github.com/notargets/polymesh/internal/cli"
)

func main() {
	if err := cli.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
