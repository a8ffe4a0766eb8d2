package main

import (
	"github.com/robotalks/backpack/pkg/cli/sh"
	"github.com/robotalks/backpack/pkg/config"

	_ "github.com/robotalks/backpack/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
