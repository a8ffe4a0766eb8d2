package stk500

// Protocol bytes.
const (
	RespOK     byte = 0x10
	RespFailed byte = 0x11
	RespInSync byte = 0x14
	RespNoSync byte = 0x15
	CrcEOP     byte = 0x20

	CmdGetSync       byte = 0x30
	CmdEnterProgMode byte = 0x50
	CmdLeaveProgMode byte = 0x51
	CmdLoadAddress   byte = 0x55
	CmdProgPage      byte = 0x64
	CmdReadPage      byte = 0x74

	memTypeFlash byte = 'F'
)

func simpleCmd(cmd byte) []byte {
	return []byte{cmd, CrcEOP}
}

// loadAddressCmd takes a byte address; the bootloader expects words.
func loadAddressCmd(addr uint32) []byte {
	word := addr / 2
	return []byte{CmdLoadAddress, byte(word), byte(word >> 8), CrcEOP}
}

func progPageCmd(data []byte) []byte {
	n := len(data)
	cmd := make([]byte, 0, n+5)
	cmd = append(cmd, CmdProgPage, byte(n>>8), byte(n), memTypeFlash)
	cmd = append(cmd, data...)
	return append(cmd, CrcEOP)
}

func readPageCmd(n int) []byte {
	return []byte{CmdReadPage, byte(n >> 8), byte(n), memTypeFlash, CrcEOP}
}
