package sensor

import "encoding/binary"

// ParseIMUReport extracts the raw Q16 XYZ values (65536 = 1 g) from a BMI286
// report. Short reports yield zeros.
func ParseIMUReport(data []byte) (x, y, z int32) {
	if len(data) < IMUDataOffset+12 {
		return 0, 0, 0
	}
	p := data[IMUDataOffset:]
	x = int32(binary.LittleEndian.Uint32(p[0:]))
	y = int32(binary.LittleEndian.Uint32(p[4:]))
	z = int32(binary.LittleEndian.Uint32(p[8:]))
	return x, y, z
}
