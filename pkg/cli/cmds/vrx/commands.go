package vrx

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/backpack/pkg/cli/sh"
	"github.com/robotalks/backpack/pkg/crsf"
	"github.com/robotalks/backpack/pkg/msp"
)

// ParseChannel accepts a table index (0-47) or a band and channel such
// as "B3".
func ParseChannel(s string) (uint8, error) {
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		if !crsf.ValidIndex(uint8(n)) {
			return 0, fmt.Errorf("channel index %d out of range", n)
		}
		return uint8(n), nil
	}
	if len(s) == 2 {
		band := strings.Index(strings.Join(crsf.BandNames[:], ""), strings.ToUpper(s[:1]))
		ch := s[1] - '0'
		if band >= 0 && ch >= 1 && ch <= crsf.ChannelsPerBand {
			return crsf.Index(uint8(band+1), ch), nil
		}
	}
	return 0, fmt.Errorf("invalid channel %q", s)
}

func describeIndex(payload []byte) (interface{}, string) {
	if len(payload) < 1 {
		return nil, "unknown"
	}
	index := payload[0]
	if !crsf.ValidIndex(index) {
		return map[string]interface{}{"index": index}, "unknown"
	}
	return map[string]interface{}{
			"index":     index,
			"band":      crsf.BandName(index),
			"channel":   crsf.ChannelInBand(index),
			"frequency": crsf.Frequency(index),
		}, fmt.Sprintf("%d %s%d %d MHz", index, crsf.BandName(index),
			crsf.ChannelInBand(index), crsf.Frequency(index))
}

func describeBytes(name string) func([]byte) (interface{}, string) {
	return func(payload []byte) (interface{}, string) {
		return map[string]string{name: hex.EncodeToString(payload)}, fmt.Sprintf("%s % x", name, payload)
	}
}

var (
	// ChannelCmd gets or sets the receiver channel.
	ChannelCmd = ishell.Cmd{
		Name:    "channel",
		Aliases: []string{"ch"},
		Help:    "[INDEX|BAND CHANNEL e.g. B3]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				sh.DoQuery(c, msp.NewCommand(msp.FuncBackpackGetChannelIndex), describeIndex)
				return
			}
			index, err := ParseChannel(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msp.NewCommand(msp.FuncBackpackSetChannelIndex, index))
		}),
	}

	// FreqCmd gets or sets the receiver frequency.
	FreqCmd = ishell.Cmd{
		Name:    "freq",
		Aliases: []string{"f"},
		Help:    "[MHZ]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				sh.DoQuery(c, msp.NewCommand(msp.FuncBackpackGetFrequency), func(payload []byte) (interface{}, string) {
					if len(payload) < 2 {
						return nil, "unknown"
					}
					mhz := uint16(payload[0]) | uint16(payload[1])<<8
					return map[string]uint16{"frequency": mhz}, fmt.Sprintf("%d MHz", mhz)
				})
				return
			}
			mhz, err := strconv.ParseUint(c.Args[0], 10, 16)
			if err != nil {
				c.Err(fmt.Errorf("Invalid MHZ: %v", err))
				return
			}
			if crsf.IndexOf(uint16(mhz)) == crsf.InvalidIndex {
				c.Err(fmt.Errorf("%d MHz not in channel table", mhz))
				return
			}
			sh.DoCommand(c, msp.NewCommand(msp.FuncBackpackSetFrequency, byte(mhz), byte(mhz>>8)))
		}),
	}

	// VTXCmd sends a VTX config carrying an index or a frequency.
	VTXCmd = ishell.Cmd{
		Name: "vtx",
		Help: "INDEX|MHZ",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("INDEX or MHZ required"))
				return
			}
			v, err := strconv.ParseUint(c.Args[0], 10, 16)
			if err != nil {
				c.Err(fmt.Errorf("Invalid value: %v", err))
				return
			}
			sh.DoCommand(c, msp.NewCommand(msp.FuncSetVTXConfig, byte(v), byte(v>>8)))
		}),
	}

	// RecordCmd gets or sets the recording state.
	RecordCmd = ishell.Cmd{
		Name:    "record",
		Aliases: []string{"rec"},
		Help:    "[on|off [DELAY(s)]]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				sh.DoQuery(c, msp.NewCommand(msp.FuncBackpackGetRecordingState), func(payload []byte) (interface{}, string) {
					on := len(payload) > 0 && payload[0] != 0
					text := "off"
					if on {
						text = "on"
					}
					return map[string]bool{"recording": on}, text
				})
				return
			}
			var state byte
			switch c.Args[0] {
			case "on", "1":
				state = 1
			case "off", "0":
			default:
				c.Err(fmt.Errorf("Invalid state: %s", c.Args[0]))
				return
			}
			var delay uint64
			if len(c.Args) > 1 {
				var err error
				if delay, err = strconv.ParseUint(c.Args[1], 10, 16); err != nil {
					c.Err(fmt.Errorf("Invalid DELAY: %v", err))
					return
				}
			}
			sh.DoCommand(c, msp.NewCommand(msp.FuncBackpackSetRecordingState, state, byte(delay), byte(delay>>8)))
		}),
	}

	// BuzzerCmd beeps the receiver.
	BuzzerCmd = ishell.Cmd{
		Name: "buzzer",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, msp.NewCommand(msp.FuncBackpackSetBuzzer))
		}),
	}

	// OSDCmd places raw element bytes on the OSD.
	OSDCmd = ishell.Cmd{
		Name: "osd",
		Help: "HEX",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("HEX required"))
				return
			}
			payload, err := hex.DecodeString(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msp.NewCommand(msp.FuncBackpackSetOSDElement, payload...))
		}),
	}

	// RSSICmd queries receiver RSSI.
	RSSICmd = ishell.Cmd{
		Name: "rssi",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoQuery(c, msp.NewCommand(msp.FuncBackpackGetRSSI), describeBytes("rssi"))
		}),
	}

	// VoltageCmd queries receiver battery voltage.
	VoltageCmd = ishell.Cmd{
		Name: "voltage",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoQuery(c, msp.NewCommand(msp.FuncBackpackGetBatteryVoltage), describeBytes("voltage"))
		}),
	}

	// FirmwareCmd queries receiver firmware version.
	FirmwareCmd = ishell.Cmd{
		Name: "firmware",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoQuery(c, msp.NewCommand(msp.FuncBackpackGetFirmware), describeBytes("firmware"))
		}),
	}
)

func init() {
	sh.AddCmds(
		&ChannelCmd,
		&FreqCmd,
		&VTXCmd,
		&RecordCmd,
		&BuzzerCmd,
		&OSDCmd,
		&RSSICmd,
		&VoltageCmd,
		&FirmwareCmd,
	)
}
