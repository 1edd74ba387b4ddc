package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraUniformSize is sizeof({vec4 camPos; mat4 camRotMat}) under std140.
const CameraUniformSize = 80

// EncodeCameraUniform packs the camera block little-endian. The matrix is
// written column-major, matching both mgl32 and GLSL.
func EncodeCameraUniform(camPos mgl32.Vec4, camRot mgl32.Mat4) []byte {
	buf := make([]byte, CameraUniformSize)
	for i, v := range camPos {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range camRot {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	return buf
}
