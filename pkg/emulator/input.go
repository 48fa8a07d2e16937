package emulator

// charToCtrlCode maps an ASCII letter to the control byte a terminal
// sends for Ctrl+that letter (man ascii; see also
// https://catern.com/posts/terminal_quirks.html).
func charToCtrlCode(c byte) byte {
	return c & 0b0001_1111
}

// InputKind identifies the key TerminalInput carries.
type InputKind int

const (
	InputAscii InputKind = iota
	InputCtrl
	InputEnter
	InputBackspace
	InputArrowRight
	InputArrowLeft
	InputArrowUp
	InputArrowDown
	InputHome
	InputEnd
	InputDelete
	InputInsert
	InputPageUp
	InputPageDown
)

// TerminalInput is one logical keypress to encode and send to the
// running endpoint. Ascii and Ctrl carry the struck key in Char.
type TerminalInput struct {
	Kind InputKind
	Char byte
}

func Ascii(c byte) TerminalInput { return TerminalInput{Kind: InputAscii, Char: c} }
func Ctrl(c byte) TerminalInput  { return TerminalInput{Kind: InputCtrl, Char: c} }

var (
	Enter     = TerminalInput{Kind: InputEnter}
	Backspace = TerminalInput{Kind: InputBackspace}
	ArrowUp   = TerminalInput{Kind: InputArrowUp}
	ArrowDown = TerminalInput{Kind: InputArrowDown}
	ArrowLeft = TerminalInput{Kind: InputArrowLeft}
	ArrowRight = TerminalInput{Kind: InputArrowRight}
	Home      = TerminalInput{Kind: InputHome}
	End       = TerminalInput{Kind: InputEnd}
	Delete    = TerminalInput{Kind: InputDelete}
	Insert    = TerminalInput{Kind: InputInsert}
	PageUp    = TerminalInput{Kind: InputPageUp}
	PageDown  = TerminalInput{Kind: InputPageDown}
)

// ToPayload encodes the input as the exact bytes written to the running
// endpoint. decckmMode selects the application-cursor-keys encoding
// (vt100 Table 3-6) over the normal one for the arrow/Home/End family.
func (t TerminalInput) ToPayload(decckmMode bool) []byte {
	switch t.Kind {
	case InputAscii:
		return []byte{t.Char}
	case InputCtrl:
		return []byte{charToCtrlCode(t.Char)}
	case InputEnter:
		return []byte{'\n'}
	case InputBackspace:
		// Hard to tie back, but check default VERASE in terminfo definition.
		return []byte{0x7f}
	case InputArrowRight:
		if decckmMode {
			return []byte("\x1bOC")
		}
		return []byte("\x1b[C")
	case InputArrowLeft:
		if decckmMode {
			return []byte("\x1bOD")
		}
		return []byte("\x1b[D")
	case InputArrowUp:
		if decckmMode {
			return []byte("\x1bOA")
		}
		return []byte("\x1b[A")
	case InputArrowDown:
		if decckmMode {
			return []byte("\x1bOB")
		}
		return []byte("\x1b[B")
	case InputHome:
		if decckmMode {
			return []byte("\x1bOH")
		}
		return []byte("\x1b[H")
	case InputEnd:
		if decckmMode {
			return []byte("\x1bOF")
		}
		return []byte("\x1b[F")
	case InputDelete:
		// Emulating the vt510's \e[3~; other terminals do it, so we can too.
		return []byte("\x1b[3~")
	case InputInsert:
		return []byte("\x1b[2~")
	case InputPageUp:
		return []byte("\x1b[5~")
	case InputPageDown:
		return []byte("\x1b[6~")
	default:
		return nil
	}
}
