// Command tracereplay reconstructs and replays an OpenMP/MPI hybrid task
// trace, emitting statistics, a Chrome trace document, and optional
// diagnostic artifacts.
package main

import (
	"context"
	"fmt"
	"os"

	"tracereplay/internal/cli"
)

func main() {
	res, err := cli.Run(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(res.ExitCode)
}
