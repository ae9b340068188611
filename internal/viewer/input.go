package viewer

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Actions is what the user asked for during one frame.
type Actions struct {
	Quit bool

	DragX, DragY float32
	Zoom         float32
	Forward      float32
	Right        float32

	ToggleChunks  bool
	ToggleBoxes   bool
	ToggleAtlas   bool
	TogglePause   bool
	InvalidateAll bool
	Snapshot      bool

	// Pick is set on right click at PickX, PickY in window coordinates.
	Pick         bool
	PickX, PickY float32

	// Resolution is non-zero when a resolution hotkey was pressed.
	Resolution int
}

var resolutionKeys = map[sdl.Scancode]int{
	sdl.SCANCODE_1: 1024,
	sdl.SCANCODE_2: 2048,
	sdl.SCANCODE_3: 4096,
}

// Input polls SDL events and turns them into Actions.
type Input struct {
	dragging bool
}

// NewInput creates an input handler.
func NewInput() *Input {
	return &Input{}
}

// Poll drains the SDL event queue.
func (in *Input) Poll() Actions {
	var a Actions
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			a.Quit = true

		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				continue
			}
			in.keyDown(e.Keysym.Scancode, &a)

		case *sdl.MouseButtonEvent:
			switch e.Button {
			case sdl.BUTTON_LEFT:
				in.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			case sdl.BUTTON_RIGHT:
				if e.Type == sdl.MOUSEBUTTONDOWN {
					a.Pick = true
					a.PickX, a.PickY = float32(e.X), float32(e.Y)
				}
			}

		case *sdl.MouseMotionEvent:
			if in.dragging {
				a.DragX += float32(e.XRel)
				a.DragY += float32(e.YRel)
			}

		case *sdl.MouseWheelEvent:
			a.Zoom += float32(e.Y)
		}
	}

	keys := sdl.GetKeyboardState()
	if keys[sdl.SCANCODE_W] != 0 {
		a.Forward++
	}
	if keys[sdl.SCANCODE_S] != 0 {
		a.Forward--
	}
	if keys[sdl.SCANCODE_D] != 0 {
		a.Right++
	}
	if keys[sdl.SCANCODE_A] != 0 {
		a.Right--
	}
	return a
}

func (in *Input) keyDown(key sdl.Scancode, a *Actions) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		a.Quit = true
	case sdl.SCANCODE_F1:
		a.ToggleChunks = true
	case sdl.SCANCODE_F2:
		a.ToggleBoxes = true
	case sdl.SCANCODE_F3:
		a.ToggleAtlas = true
	case sdl.SCANCODE_SPACE:
		a.TogglePause = true
	case sdl.SCANCODE_R:
		a.InvalidateAll = true
	case sdl.SCANCODE_F12:
		a.Snapshot = true
	default:
		if res, ok := resolutionKeys[key]; ok {
			a.Resolution = res
		}
	}
}
