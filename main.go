package main

import (
	"context"
	"os"

	"github.com/bioscout/bioscout/cmd"
	"github.com/bioscout/bioscout/internal/cli"
	"github.com/bioscout/bioscout/internal/conf"
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
