// Command tilecanvas serves a shared tiled pixel canvas.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tilecanvas/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
