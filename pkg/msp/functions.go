package msp

// Function ids understood by the backpack.
const (
	FuncSetVTXConfig uint16 = 0x59

	FuncELRSBind                   uint16 = 0x09
	FuncELRSSetVRXBackpackWifiMode uint16 = 0x0d
	FuncELRSGetBackpackVersion     uint16 = 0x10

	FuncBackpackGetChannelIndex   uint16 = 0x0300
	FuncBackpackSetChannelIndex   uint16 = 0x0301
	FuncBackpackGetFrequency      uint16 = 0x0302
	FuncBackpackSetFrequency      uint16 = 0x0303
	FuncBackpackGetRecordingState uint16 = 0x0304
	FuncBackpackSetRecordingState uint16 = 0x0305
	FuncBackpackGetRSSI           uint16 = 0x0308
	FuncBackpackGetBatteryVoltage uint16 = 0x0309
	FuncBackpackGetFirmware       uint16 = 0x030a
	FuncBackpackSetBuzzer         uint16 = 0x030b
	FuncBackpackSetOSDElement     uint16 = 0x030c
	FuncBackpackSetMode           uint16 = 0x0380
)

// Modes carried by FuncBackpackSetMode.
const (
	ModeBinding byte = 'B'
	ModeWifi    byte = 'W'
)
