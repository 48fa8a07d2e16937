// Package vtparser implements the byte-stream state machine that turns a
// raw PTY output stream into a sequence of semantic terminal operations
// (TerminalOutput). It recognizes a fixed subset of ANSI/VT escape
// sequences -- the cursor-movement, erase, line-edit and SGR CSI forms
// enumerated by this engine's supported ground alphabet -- and treats
// anything else as either literal data or a single Invalid op, never a
// parse failure.
package vtparser

import (
	"fmt"

	"github.com/vt100go/termengine/pkg/logging"
	"github.com/vt100go/termengine/pkg/snapshot"
)

// Mode identifies a DEC private mode set/reset by CSI `h`/`l`.
type Mode struct {
	Decckm bool
	Raw    []byte // populated, Decckm false, for any mode this engine doesn't track by name
}

func (m Mode) String() string {
	if m.Decckm {
		return "Decckm"
	}
	return fmt.Sprintf("Unknown(%v)", m.Raw)
}

func modeFromParams(params []byte) Mode {
	if len(params) >= 2 && params[0] == '?' && string(params[1:]) == "1" {
		return Mode{Decckm: true}
	}
	raw := make([]byte, len(params))
	copy(raw, params)
	return Mode{Raw: raw}
}

// Sgr is the decoded form of one `m`-terminated SGR parameter.
type Sgr int

const (
	SgrReset Sgr = iota
	SgrBold
	SgrForegroundBlack
	SgrForegroundRed
	SgrForegroundGreen
	SgrForegroundYellow
	SgrForegroundBlue
	SgrForegroundMagenta
	SgrForegroundCyan
	SgrForegroundWhite
	SgrForegroundBrightBlack
	SgrForegroundBrightRed
	SgrForegroundBrightGreen
	SgrForegroundBrightYellow
	SgrForegroundBrightBlue
	SgrForegroundBrightMagenta
	SgrForegroundBrightCyan
	SgrForegroundBrightWhite
	SgrUnknown
)

// sgrFromParam decodes a single numeric SGR parameter. Codes this engine
// doesn't implement map to SgrUnknown, carried alongside the raw code so
// callers can at least log it.
type SgrCode struct {
	Kind Sgr
	Raw  int
}

func sgrFromParam(v int) SgrCode {
	switch {
	case v == 0:
		return SgrCode{Kind: SgrReset, Raw: v}
	case v == 1:
		return SgrCode{Kind: SgrBold, Raw: v}
	case v >= 30 && v <= 37:
		return SgrCode{Kind: Sgr(SgrForegroundBlack + Sgr(v-30)), Raw: v}
	case v >= 90 && v <= 97:
		return SgrCode{Kind: Sgr(SgrForegroundBrightBlack + Sgr(v-90)), Raw: v}
	default:
		return SgrCode{Kind: SgrUnknown, Raw: v}
	}
}

// OutputKind enumerates the semantic operations the parser can emit.
type OutputKind int

const (
	OutSetCursorPos OutputKind = iota
	OutSetCursorPosRel
	OutClearForwards
	OutClearAll
	OutCarriageReturn
	OutClearLineForwards
	OutNewline
	OutBackspace
	OutInsertLines
	OutDelete
	OutSgr
	OutData
	OutSetMode
	OutResetMode
	OutInsertSpaces
	OutInvalid
)

// TerminalOutput is one semantic unit produced by the parser. Only the
// fields relevant to Kind are populated.
type TerminalOutput struct {
	Kind OutputKind

	// SetCursorPos / SetCursorPosRel
	X *int
	Y *int

	N    int // InsertLines, Delete, InsertSpaces count
	Sgr  SgrCode
	Data []byte
	Mode Mode
}

func intPtr(v int) *int { return &v }

// --- CSI sub-parser -------------------------------------------------------

type csiState int

const (
	csiParams csiState = iota
	csiIntermediates
	csiFinished
	csiInvalid
	csiInvalidFinished
)

func isCsiTerminator(b byte) bool   { return b >= 0x40 && b <= 0x7e }
func isCsiParamByte(b byte) bool    { return b >= 0x30 && b <= 0x3f }
func isCsiIntermediate(b byte) bool { return b >= 0x20 && b <= 0x2f }

type csiParser struct {
	state        csiState
	params       []byte
	intermediates []byte
	finished     byte
}

func newCsiParser() *csiParser {
	return &csiParser{state: csiParams}
}

// push feeds one byte into the CSI sub-state-machine.
func (c *csiParser) push(b byte) {
	switch c.state {
	case csiParams:
		if isCsiParamByte(b) {
			c.params = append(c.params, b)
			return
		}
		c.state = csiIntermediates
		fallthrough
	case csiIntermediates:
		if isCsiIntermediate(b) {
			c.intermediates = append(c.intermediates, b)
			return
		}
		if isCsiTerminator(b) {
			c.finished = b
			c.state = csiFinished
			return
		}
		c.state = csiInvalid
	case csiFinished, csiInvalidFinished:
		// extra bytes after a terminator are ignored by the owning AnsiParser,
		// which resets to ground as soon as it observes Finished/InvalidFinished
	case csiInvalid:
		if isCsiTerminator(b) {
			c.state = csiInvalidFinished
		}
	}
}

func (c *csiParser) snapshot() snapshot.Item {
	var stateStr string
	switch c.state {
	case csiParams:
		stateStr = "params"
	case csiIntermediates:
		stateStr = "intermediates"
	case csiFinished:
		stateStr = "finished"
	case csiInvalid:
		stateStr = "invalid"
	case csiInvalidFinished:
		stateStr = "invalid_finished"
	}
	return snapshot.Map(map[string]snapshot.Item{
		"state":         snapshot.String(stateStr),
		"finished_byte": snapshot.Int(int64(c.finished)),
		"params":        snapshot.Bytes(c.params),
		"intermediates": snapshot.Bytes(c.intermediates),
	})
}

func csiParserFromSnapshot(it snapshot.Item) (*csiParser, error) {
	stateStr, err := fieldString(it, "csi_parser", "state")
	if err != nil {
		return nil, err
	}
	finishedI, err := fieldInt(it, "csi_parser", "finished_byte")
	if err != nil {
		return nil, err
	}
	params, err := fieldBytes(it, "csi_parser", "params")
	if err != nil {
		return nil, err
	}
	intermediates, err := fieldBytes(it, "csi_parser", "intermediates")
	if err != nil {
		return nil, err
	}
	c := &csiParser{
		finished:      byte(finishedI),
		params:        params,
		intermediates: intermediates,
	}
	switch stateStr {
	case "params":
		c.state = csiParams
	case "intermediates":
		c.state = csiIntermediates
	case "finished":
		c.state = csiFinished
	case "invalid":
		c.state = csiInvalid
	case "invalid_finished":
		c.state = csiInvalidFinished
	default:
		return nil, fmt.Errorf("csi_parser: unknown state %q", stateStr)
	}
	return c, nil
}

func fieldString(it snapshot.Item, parent, key string) (string, error) {
	f, err := snapshot.Field(it, parent, key)
	if err != nil {
		return "", err
	}
	return f.AsString()
}

func fieldInt(it snapshot.Item, parent, key string) (int64, error) {
	f, err := snapshot.Field(it, parent, key)
	if err != nil {
		return 0, err
	}
	return f.AsInt64()
}

func fieldBytes(it snapshot.Item, parent, key string) ([]byte, error) {
	f, err := snapshot.Field(it, parent, key)
	if err != nil {
		return nil, err
	}
	return f.AsBytes()
}

// --- top-level parser ------------------------------------------------------

type innerState int

const (
	innerEmpty innerState = iota
	innerEscape
	innerCsi
)

// AnsiParser is the stateful byte-stream-to-ops machine. It is not safe
// for concurrent use; callers serialize access the same way the rest of
// the engine's single-threaded components do.
type AnsiParser struct {
	state innerState
	csi   *csiParser
}

func New() *AnsiParser {
	return &AnsiParser{state: innerEmpty}
}

// Push consumes incoming bytes and returns every TerminalOutput op they
// produced, in order. A malformed escape or CSI sequence yields a single
// OutInvalid op and resets the parser to ground state; it never returns
// an error, matching spec §4.1's "Parser failure semantics" (best-effort
// resynchronization, no panics).
func (p *AnsiParser) Push(incoming []byte) []TerminalOutput {
	var out []TerminalOutput
	var data []byte

	flushData := func() {
		if len(data) > 0 {
			out = append(out, TerminalOutput{Kind: OutData, Data: data})
			data = nil
		}
	}

	for _, b := range incoming {
		switch p.state {
		case innerEmpty:
			switch {
			case b == 0x1b:
				flushData()
				p.state = innerEscape
			case b == '\r':
				flushData()
				out = append(out, TerminalOutput{Kind: OutCarriageReturn})
			case b == '\n':
				flushData()
				out = append(out, TerminalOutput{Kind: OutNewline})
			case b == 0x08:
				flushData()
				out = append(out, TerminalOutput{Kind: OutBackspace})
			default:
				data = append(data, b)
			}

		case innerEscape:
			if b == '[' {
				p.csi = newCsiParser()
				p.state = innerCsi
			} else {
				logging.Warnf("vtparser: invalid escape byte %q", b)
				out = append(out, TerminalOutput{Kind: OutInvalid})
				p.state = innerEmpty
			}

		case innerCsi:
			p.csi.push(b)
			switch p.csi.state {
			case csiFinished:
				out = append(out, p.dispatchCsi(p.csi)...)
				p.state = innerEmpty
				p.csi = nil
			case csiInvalidFinished:
				out = append(out, TerminalOutput{Kind: OutInvalid})
				p.state = innerEmpty
				p.csi = nil
			}
		}
	}

	flushData()
	return out
}

func paramsAsInts(params []byte) []int {
	if len(params) == 0 {
		return nil
	}
	var out []int
	cur := -1
	have := false
	for _, b := range params {
		if b == ';' {
			if have {
				out = append(out, cur)
			} else {
				out = append(out, 0)
			}
			cur = -1
			have = false
			continue
		}
		if b >= '0' && b <= '9' {
			if !have {
				cur = 0
				have = true
			}
			cur = cur*10 + int(b-'0')
		}
	}
	if have {
		out = append(out, cur)
	} else if len(params) > 0 {
		out = append(out, 0)
	}
	return out
}

func paramOr(params []int, idx, def int) int {
	if idx >= len(params) {
		return def
	}
	return params[idx]
}

func (p *AnsiParser) dispatchCsi(c *csiParser) []TerminalOutput {
	params := paramsAsInts(c.params)

	switch c.finished {
	case 'A':
		n := paramOr(params, 0, 1)
		if n == 0 {
			n = 1
		}
		return []TerminalOutput{{Kind: OutSetCursorPosRel, Y: intPtr(-n)}}
	case 'B':
		n := paramOr(params, 0, 1)
		if n == 0 {
			n = 1
		}
		return []TerminalOutput{{Kind: OutSetCursorPosRel, Y: intPtr(n)}}
	case 'C':
		n := paramOr(params, 0, 1)
		if n == 0 {
			n = 1
		}
		return []TerminalOutput{{Kind: OutSetCursorPosRel, X: intPtr(n)}}
	case 'D':
		n := paramOr(params, 0, 1)
		if n == 0 {
			n = 1
		}
		return []TerminalOutput{{Kind: OutSetCursorPosRel, X: intPtr(-n)}}
	case 'H':
		y := paramOr(params, 0, 1)
		if y == 0 {
			y = 1
		}
		x := paramOr(params, 1, 1)
		if x == 0 {
			x = 1
		}
		return []TerminalOutput{{Kind: OutSetCursorPos, Y: intPtr(y), X: intPtr(x)}}
	case 'G':
		x := paramOr(params, 0, 1)
		if x == 0 {
			x = 1
		}
		return []TerminalOutput{{Kind: OutSetCursorPos, X: intPtr(x)}}
	case 'J':
		switch paramOr(params, 0, 0) {
		case 0:
			return []TerminalOutput{{Kind: OutClearForwards}}
		case 2, 3:
			return []TerminalOutput{{Kind: OutClearAll}}
		default:
			return []TerminalOutput{{Kind: OutInvalid}}
		}
	case 'K':
		if paramOr(params, 0, 0) == 0 {
			return []TerminalOutput{{Kind: OutClearLineForwards}}
		}
		return []TerminalOutput{{Kind: OutInvalid}}
	case 'L':
		n := paramOr(params, 0, 1)
		if n == 0 {
			n = 1
		}
		return []TerminalOutput{{Kind: OutInsertLines, N: n}}
	case 'P':
		n := paramOr(params, 0, 1)
		if n == 0 {
			n = 1
		}
		return []TerminalOutput{{Kind: OutDelete, N: n}}
	case '@':
		n := paramOr(params, 0, 1)
		if n == 0 {
			n = 1
		}
		return []TerminalOutput{{Kind: OutInsertSpaces, N: n}}
	case 'm':
		if len(params) == 0 {
			params = []int{0}
		}
		out := make([]TerminalOutput, 0, len(params))
		for _, pv := range params {
			out = append(out, TerminalOutput{Kind: OutSgr, Sgr: sgrFromParam(pv)})
		}
		return out
	case 'h':
		return []TerminalOutput{{Kind: OutSetMode, Mode: modeFromParams(c.params)}}
	case 'l':
		return []TerminalOutput{{Kind: OutResetMode, Mode: modeFromParams(c.params)}}
	default:
		logging.Warnf("vtparser: unhandled CSI final byte %q", c.finished)
		return []TerminalOutput{{Kind: OutInvalid}}
	}
}

// Snapshot serializes parser state for recording/replay resume.
func (p *AnsiParser) Snapshot() snapshot.Item {
	switch p.state {
	case innerEmpty:
		return snapshot.Map(map[string]snapshot.Item{"inner": snapshot.String("empty")})
	case innerEscape:
		return snapshot.Map(map[string]snapshot.Item{"inner": snapshot.String("escape")})
	case innerCsi:
		return snapshot.Map(map[string]snapshot.Item{
			"inner": snapshot.String("csi"),
			"csi":   p.csi.snapshot(),
		})
	}
	return snapshot.Map(nil)
}

// FromSnapshot reconstructs a parser from a tree produced by Snapshot.
func FromSnapshot(it snapshot.Item) (*AnsiParser, error) {
	inner, err := fieldString(it, "ansi_parser", "inner")
	if err != nil {
		return nil, err
	}
	p := &AnsiParser{}
	switch inner {
	case "empty":
		p.state = innerEmpty
	case "escape":
		p.state = innerEscape
	case "csi":
		csiItem, err := snapshot.Field(it, "ansi_parser", "csi")
		if err != nil {
			return nil, err
		}
		c, err := csiParserFromSnapshot(csiItem)
		if err != nil {
			return nil, err
		}
		p.state = innerCsi
		p.csi = c
	default:
		return nil, fmt.Errorf("ansi_parser: unknown inner state %q", inner)
	}
	return p, nil
}
