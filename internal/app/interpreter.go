package app

// EventKind distinguishes input events.
type EventKind int

const (
	EventKey EventKind = iota
	EventMouseDown
	EventMouseUp
	EventCursor
	EventScroll
	EventResize
	EventTick // one frame elapsed, no input
)

// Key is a window-system independent key.
type Key int

const (
	KeyNone Key = iota
	KeyTab
	KeyEscape
	KeyDelete
	KeyA
	KeyF
	KeyG
	KeyH
	KeyN
	KeyP
	KeyS
	KeyT
	KeyV
	KeyEqual
	KeyMinus
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

// Event is one input event, translated from the window system by the
// caller.
type Event struct {
	Kind  EventKind
	Key   Key  // EventKey
	Shift bool // EventKey

	X, Y          float64 // EventCursor: position in pixels
	Scroll        float64 // EventScroll: wheel delta
	Width, Height int     // EventResize: framebuffer size
}

// Op is what a command does.
type Op int

const (
	OpNone Op = iota
	OpSelectNext
	OpSelectPrev
	OpSelectAll
	OpUnselectAll
	OpToggleVisibility // of the current instance
	OpShowAll
	OpHideAll
	OpToggleShowState
	OpToggleTransparency // of the current instance's mesh
	OpCyclePolygonMode
	OpToggleFlat      // move the current instance into or out of the flat shader group
	OpToggleFlatGroup // bind or unbind the flat shader group
	OpRemove
	OpAdd
	OpFit
	OpZoom  // Amount: steps, positive zooms in
	OpOrbit // DX, DY: radians of yaw and pitch
	OpResize
)

var opNames = map[Op]string{
	OpNone:               "none",
	OpSelectNext:         "select-next",
	OpSelectPrev:         "select-prev",
	OpSelectAll:          "select-all",
	OpUnselectAll:        "unselect-all",
	OpToggleVisibility:   "toggle-visibility",
	OpShowAll:            "show-all",
	OpHideAll:            "hide-all",
	OpToggleShowState:    "toggle-show-state",
	OpToggleTransparency: "toggle-transparency",
	OpCyclePolygonMode:   "cycle-polygon-mode",
	OpToggleFlat:         "toggle-flat",
	OpToggleFlatGroup:    "toggle-flat-group",
	OpRemove:             "remove",
	OpAdd:                "add",
	OpFit:                "fit",
	OpZoom:               "zoom",
	OpOrbit:              "orbit",
	OpResize:             "resize",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// Command is one action on the application.
type Command struct {
	Op            Op
	Amount        float64
	DX, DY        float64
	Width, Height int
}

// Interpreter turns input events into commands. Implementations hold their
// own gesture state.
type Interpreter interface {
	Interpret(Event) []Command
}

// orbitSpeed is radians of orbit per pixel dragged.
const orbitSpeed = 0.01

// orbitStep is radians of orbit per arrow key press.
const orbitStep = 0.1

// KeyboardInterpreter is the interactive interpreter: keys map to commands,
// dragging orbits, scrolling zooms.
type KeyboardInterpreter struct {
	dragging     bool
	lastX, lastY float64
	haveCursor   bool
}

var _ Interpreter = (*KeyboardInterpreter)(nil)

// NewKeyboardInterpreter returns an interpreter with no gesture in progress.
func NewKeyboardInterpreter() *KeyboardInterpreter {
	return &KeyboardInterpreter{}
}

// Interpret implements Interpreter.
func (ki *KeyboardInterpreter) Interpret(ev Event) []Command {
	switch ev.Kind {
	case EventKey:
		if cmd, ok := ki.keyCommand(ev.Key, ev.Shift); ok {
			return []Command{cmd}
		}
	case EventMouseDown:
		ki.dragging = true
	case EventMouseUp:
		ki.dragging = false
	case EventCursor:
		dx, dy := ev.X-ki.lastX, ev.Y-ki.lastY
		moved := ki.haveCursor
		ki.lastX, ki.lastY, ki.haveCursor = ev.X, ev.Y, true
		if ki.dragging && moved && (dx != 0 || dy != 0) {
			return []Command{{Op: OpOrbit, DX: -dx * orbitSpeed, DY: dy * orbitSpeed}}
		}
	case EventScroll:
		if ev.Scroll != 0 {
			return []Command{{Op: OpZoom, Amount: ev.Scroll}}
		}
	case EventResize:
		return []Command{{Op: OpResize, Width: ev.Width, Height: ev.Height}}
	}
	return nil
}

func (ki *KeyboardInterpreter) keyCommand(key Key, shift bool) (Command, bool) {
	pick := func(plain, shifted Op) Command {
		if shift {
			return Command{Op: shifted}
		}
		return Command{Op: plain}
	}
	switch key {
	case KeyTab:
		return pick(OpSelectNext, OpSelectPrev), true
	case KeyA:
		return pick(OpSelectAll, OpUnselectAll), true
	case KeyEscape:
		return Command{Op: OpUnselectAll}, true
	case KeyV:
		return Command{Op: OpToggleVisibility}, true
	case KeyS:
		return pick(OpShowAll, OpHideAll), true
	case KeyH:
		return Command{Op: OpToggleShowState}, true
	case KeyT:
		return Command{Op: OpToggleTransparency}, true
	case KeyP:
		return Command{Op: OpCyclePolygonMode}, true
	case KeyG:
		return pick(OpToggleFlat, OpToggleFlatGroup), true
	case KeyDelete:
		return Command{Op: OpRemove}, true
	case KeyN:
		return Command{Op: OpAdd}, true
	case KeyF:
		return Command{Op: OpFit}, true
	case KeyEqual:
		return Command{Op: OpZoom, Amount: 1}, true
	case KeyMinus:
		return Command{Op: OpZoom, Amount: -1}, true
	case KeyLeft:
		return Command{Op: OpOrbit, DX: -orbitStep}, true
	case KeyRight:
		return Command{Op: OpOrbit, DX: orbitStep}, true
	case KeyUp:
		return Command{Op: OpOrbit, DY: orbitStep}, true
	case KeyDown:
		return Command{Op: OpOrbit, DY: -orbitStep}, true
	}
	return Command{}, false
}

// ScriptInterpreter replays a fixed list of commands, one per event of any
// kind, ignoring the event itself. Used for headless runs and tests.
type ScriptInterpreter struct {
	commands []Command
	next     int
}

var _ Interpreter = (*ScriptInterpreter)(nil)

// NewScriptInterpreter returns an interpreter replaying commands in order.
func NewScriptInterpreter(commands ...Command) *ScriptInterpreter {
	return &ScriptInterpreter{commands: commands}
}

// Interpret implements Interpreter.
func (si *ScriptInterpreter) Interpret(Event) []Command {
	if si.Done() {
		return nil
	}
	cmd := si.commands[si.next]
	si.next++
	return []Command{cmd}
}

// Done reports whether every command was replayed.
func (si *ScriptInterpreter) Done() bool {
	return si.next >= len(si.commands)
}
