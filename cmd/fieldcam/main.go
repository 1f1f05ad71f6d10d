package main

import (
	"fmt"
	"os"

	"github.com/soocke/fieldcam-go/cli"
)

func main() {
	root := cli.NewRootCommand(newPreviewCommand)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
