package crsf

var crc8Table = makeCRC8Table(0xd5)

func makeCRC8Table(poly byte) (table [256]byte) {
	for i := range table {
		crc := byte(i)
		for n := 0; n < 8; n++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return
}

// CRC8 computes CRC-8 with polynomial 0xD5 and zero init.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crc8Table[crc^b]
	}
	return crc
}
