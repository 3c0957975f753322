package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/banshee-data/sonarmap/internal/version"
)

func main() {
	root := NewRootCmd()
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
