package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is the viewer state. Rotation is in degrees around X, Y and Z.
type Camera struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	// Speed is in world units per second, TurnSpeed in degrees per second.
	Speed     float32
	TurnSpeed float32
}

func NewCamera(position mgl32.Vec3, speed, turnSpeed float32) *Camera {
	return &Camera{
		Position:  position,
		Speed:     speed,
		TurnSpeed: turnSpeed,
	}
}

// Update integrates one frame of input over dt seconds. Movement is along
// world axes: D/A on X, W/S on Y, Space/Shift on Z.
func (c *Camera) Update(in InputState, dt float32) {
	var dir mgl32.Vec3
	if in.D {
		dir[0]++
	}
	if in.A {
		dir[0]--
	}
	if in.W {
		dir[1]++
	}
	if in.S {
		dir[1]--
	}
	if in.Space {
		dir[2]++
	}
	if in.Shift {
		dir[2]--
	}
	c.Position = c.Position.Add(dir.Mul(c.Speed * dt))

	turn := c.TurnSpeed * dt
	if in.RightArrow {
		c.Rotation[1] += turn
	}
	if in.LeftArrow {
		c.Rotation[1] -= turn
	}
	if in.UpArrow {
		c.Rotation[0] -= turn
	}
	if in.DownArrow {
		c.Rotation[0] += turn
	}
}

// RotationMatrix is the camera-to-world rotation. X is applied first, then Y, then Z.
func (c *Camera) RotationMatrix() mgl32.Mat4 {
	rx := mgl32.DegToRad(c.Rotation[0])
	ry := mgl32.DegToRad(c.Rotation[1])
	rz := mgl32.DegToRad(c.Rotation[2])
	return mgl32.AnglesToQuat(rz, ry, rx, mgl32.ZYX).Mat4()
}
