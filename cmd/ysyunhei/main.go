package main

import (
	"context"
	"os"

	"github.com/rshade/ysyunhei/internal/cli"
	"github.com/rshade/ysyunhei/internal/version"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

// run executes the root command and maps its error to a process exit code.
func run(ctx context.Context, args []string) int {
	root := cli.NewRootCmd(version.GetVersion())
	root.SetArgs(args)
	return exitCode(root.ExecuteContext(ctx))
}

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}
