package main

import (
	"context"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	cmd := newRootCommand(&runner{})
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
