// Package msp implements the MultiWii Serial Protocol framing used for
// backpack commands, both over the wireless link and serial-attached
// receivers.
//
// Two framings are supported:
//
//	v1: '$' 'M' dir size func payload xor
//	    with size=255 escaping to a 16-bit little-endian length after func
//	v2: '$' 'X' dir flags funcLE16 sizeLE16 payload crc8(dvb-s2)
//
// v2 is selected automatically for function ids that do not fit a byte.
package msp
