package core

import "github.com/go-gl/glfw/v3.3/glfw"

// InputState is a snapshot of the keys the viewer reacts to.
type InputState struct {
	RightArrow, LeftArrow, UpArrow, DownArrow bool
	D, A, W, S                                bool
	Shift, Space                              bool
	P                                         bool
}

// KeyReader is satisfied by *glfw.Window.
type KeyReader interface {
	GetKey(key glfw.Key) glfw.Action
}

func PollInput(keys KeyReader) InputState {
	down := func(k glfw.Key) bool { return keys.GetKey(k) == glfw.Press }
	return InputState{
		RightArrow: down(glfw.KeyRight),
		LeftArrow:  down(glfw.KeyLeft),
		UpArrow:    down(glfw.KeyUp),
		DownArrow:  down(glfw.KeyDown),
		D:          down(glfw.KeyD),
		A:          down(glfw.KeyA),
		W:          down(glfw.KeyW),
		S:          down(glfw.KeyS),
		Shift:      down(glfw.KeyLeftShift) || down(glfw.KeyRightShift),
		Space:      down(glfw.KeySpace),
		P:          down(glfw.KeyP),
	}
}
