package core

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

type fakeKeys map[glfw.Key]bool

func (f fakeKeys) GetKey(k glfw.Key) glfw.Action {
	if f[k] {
		return glfw.Press
	}
	return glfw.Release
}

func TestPollInput(t *testing.T) {
	in := PollInput(fakeKeys{glfw.KeyW: true, glfw.KeyRightShift: true, glfw.KeyLeft: true})
	assert.Equal(t, InputState{W: true, Shift: true, LeftArrow: true}, in)
}

func TestCameraUpdateMoves(t *testing.T) {
	c := NewCamera(mgl32.Vec3{1, 1, 1}, 2, 90)
	c.Update(InputState{D: true, W: true, Shift: true}, 0.5)
	assert.True(t, c.Position.ApproxEqual(mgl32.Vec3{2, 2, 0}), "got %v", c.Position)

	// Opposite keys cancel.
	c.Update(InputState{A: true, D: true}, 1)
	assert.True(t, c.Position.ApproxEqual(mgl32.Vec3{2, 2, 0}))
}

func TestCameraUpdateTurns(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, 1, 90)
	c.Update(InputState{RightArrow: true, UpArrow: true}, 1)
	assert.InDelta(t, 90, c.Rotation[1], 1e-5)
	assert.InDelta(t, -90, c.Rotation[0], 1e-5)
}

func TestRotationMatrix(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, 1, 1)
	assert.True(t, c.RotationMatrix().ApproxEqual(mgl32.Ident4()))

	c.Rotation = mgl32.Vec3{0, 90, 0}
	want := mgl32.HomogRotate3DY(mgl32.DegToRad(90))
	assert.True(t, c.RotationMatrix().ApproxEqualThreshold(want, 1e-5))

	c.Rotation = mgl32.Vec3{30, 45, 0}
	want = mgl32.HomogRotate3DY(mgl32.DegToRad(45)).Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(30)))
	assert.True(t, c.RotationMatrix().ApproxEqualThreshold(want, 1e-5))
}
