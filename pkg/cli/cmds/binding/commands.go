package binding

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/backpack/pkg/cli/sh"
	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/msp"
)

var (
	// BindCmd sends a bind packet carrying an address, the local one by
	// default.
	BindCmd = ishell.Cmd{
		Name:    "bind",
		Aliases: []string{"b"},
		Help:    "[ADDR]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			addr := sh.ShellFrom(c).Local
			if len(c.Args) > 0 {
				var err error
				if addr, err = config.ParseAddress(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			sh.DoCommand(c, msp.NewCommand(msp.FuncELRSBind, addr[:]...))
		}),
	}

	// ModeCmd switches the backpack mode.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "binding|wifi",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("MODE required"))
				return
			}
			var mode byte
			switch c.Args[0] {
			case "binding", "bind", "B":
				mode = msp.ModeBinding
			case "wifi", "W":
				mode = msp.ModeWifi
			default:
				c.Err(fmt.Errorf("Invalid MODE: %s", c.Args[0]))
				return
			}
			sh.DoCommand(c, msp.NewCommand(msp.FuncBackpackSetMode, mode))
		}),
	}

	// WifiCmd asks the backpack to enter Wi-Fi update mode.
	WifiCmd = ishell.Cmd{
		Name: "wifi",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, msp.NewCommand(msp.FuncELRSSetVRXBackpackWifiMode))
		}),
	}

	// VersionCmd queries the backpack version.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"v"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoQuery(c, msp.NewCommand(msp.FuncELRSGetBackpackVersion), func(payload []byte) (interface{}, string) {
				return map[string]string{"version": string(payload)}, string(payload)
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&BindCmd,
		&ModeCmd,
		&WifiCmd,
		&VersionCmd,
	)
}
