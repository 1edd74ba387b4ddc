package shaders

import (
	"encoding/binary"
	"fmt"
	"os"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// LoadSPIRV reads a compiled compute kernel from disk.
func LoadSPIRV(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shader: %w", err)
	}
	code, err := ParseSPIRV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return code, nil
}

// ParseSPIRV converts a little-endian SPIR-V byte stream to words and checks its header.
func ParseSPIRV(data []byte) ([]uint32, error) {
	if len(data) < 20 || len(data)%4 != 0 {
		return nil, fmt.Errorf("spirv: %d bytes is not a module", len(data))
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if code[0] != SPIRVMagic {
		return nil, fmt.Errorf("spirv: bad magic %#08x", code[0])
	}
	return code, nil
}
