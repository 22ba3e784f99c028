package meshcrypto

// OTA framing constants.
const (
	// OtaChunkSize is the firmware payload carried by one OTA write.
	OtaChunkSize = 16

	otaPad byte = 0xFF
)

// crc16 is the reflected 0xA001 CRC nodes verify on every OTA write.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			if (crc^uint16(b))&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
			b >>= 1
		}
	}
	return crc
}

// BuildOtaChunk frames up to 16 bytes of firmware as
// index(2, LE) || data padded with 0xFF || crc16(2, LE).
func (Telink) BuildOtaChunk(data []byte, index int) []byte {
	out := make([]byte, 2+OtaChunkSize+2)
	out[0] = byte(index)
	out[1] = byte(index >> 8)
	for i := 0; i < OtaChunkSize; i++ {
		if i < len(data) {
			out[2+i] = data[i]
		} else {
			out[2+i] = otaPad
		}
	}
	crc := crc16(out[:2+OtaChunkSize])
	out[2+OtaChunkSize] = byte(crc)
	out[3+OtaChunkSize] = byte(crc >> 8)
	return out
}

// BuildOtaEndMarker frames the end of a transfer of total chunks.
func (Telink) BuildOtaEndMarker(total int) []byte {
	lo, hi := byte(total), byte(total>>8)
	return []byte{0x02, 0xFF, lo, hi, ^lo, ^hi}
}

// ParseOtaChunk splits a chunk built by BuildOtaChunk. It returns false
// when the CRC does not match.
func ParseOtaChunk(b []byte) (index int, data []byte, ok bool) {
	if len(b) != 2+OtaChunkSize+2 {
		return 0, nil, false
	}
	crc := uint16(b[2+OtaChunkSize]) | uint16(b[3+OtaChunkSize])<<8
	if crc != crc16(b[:2+OtaChunkSize]) {
		return 0, nil, false
	}
	return int(b[0]) | int(b[1])<<8, b[2 : 2+OtaChunkSize], true
}

// ParseOtaEndMarker returns the chunk count of an end marker.
func ParseOtaEndMarker(b []byte) (int, bool) {
	if len(b) != 6 || b[0] != 0x02 || b[1] != 0xFF || b[4] != ^b[2] || b[5] != ^b[3] {
		return 0, false
	}
	return int(b[2]) | int(b[3])<<8, true
}
