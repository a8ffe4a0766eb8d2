// Package all registers every command set with the shell.
package all

import (
	_ "github.com/robotalks/backpack/pkg/cli/cmds/binding"
	_ "github.com/robotalks/backpack/pkg/cli/cmds/vrx"
)
