package modfile

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// parser is a shared base of the binary format loaders.
//
// Reading methods panic with *ParseError on the unexpected EOF;
// run() recovers it and returns as an error.
type parser struct {
	// Data holds the input data bytes.
	data []byte

	// Offset is our current position inside the data.
	offset int

	order binary.ByteOrder

	module *Module

	eventPool objectPool[Event]

	// These fields below are needed for better error reporting.
	stage         string
	stageIndex    int
	subStage      string
	subStageIndex int
}

func newParser(data []byte, order binary.ByteOrder) *parser {
	p := &parser{
		data:   data,
		order:  order,
		module: NewModule(),
	}
	initObjectPool(&p.eventPool, 64*32*8)
	return p
}

func (p *parser) run(f func()) (m *Module, err error) {
	defer func() {
		rv := recover()
		if rv != nil {
			if panicErr, ok := rv.(*ParseError); ok {
				m = nil
				err = panicErr
			} else {
				panic(rv)
			}
		}
	}()

	f()

	if err := Validate(p.module); err != nil {
		return nil, err
	}
	return p.module, nil
}

func (p *parser) startStage(name string) {
	p.stage = name
	p.stageIndex = -1
	p.subStage = ""
	p.subStageIndex = -1
}

func (p *parser) startSubStage(name string) {
	p.subStage = name
	p.subStageIndex = -1
}

func (p *parser) formatStage() string {
	var b strings.Builder
	b.Grow(len(p.stage) + len(p.subStage) + 16)
	b.WriteString(p.stage)
	if p.stageIndex >= 0 {
		fmt.Fprintf(&b, "[%d]", p.stageIndex)
	}
	if p.subStage != "" {
		b.WriteByte('.')
		b.WriteString(p.subStage)
		if p.subStageIndex >= 0 {
			fmt.Fprintf(&b, "[%d]", p.subStageIndex)
		}
	}
	return b.String()
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	text := fmt.Sprintf(format, args...)
	tag := p.formatStage()
	if tag != "" {
		text = tag + ": " + text
	}
	return &ParseError{
		Message: text,
		Offset:  p.offset,
	}
}

func (p *parser) dataBytesRemaining() int {
	return len(p.data) - p.offset
}

func (p *parser) sliceData(l int) []byte {
	return p.data[p.offset : p.offset+l]
}

func (p *parser) skip(l int, what string) {
	if p.dataBytesRemaining() < l {
		panic(p.errorf("unexpected EOF while reading %s", what))
	}
	p.offset += l
}

func (p *parser) read(l int, what string) []byte {
	if l < 0 || p.dataBytesRemaining() < l {
		panic(p.errorf("unexpected EOF while reading %s", what))
	}
	b := p.sliceData(l)
	p.offset += l
	return b
}

// readAtMost is like read, but it returns a shorter slice instead of failing.
// Truncated sample data is common in the wild.
func (p *parser) readAtMost(l int) []byte {
	if l > p.dataBytesRemaining() {
		l = p.dataBytesRemaining()
	}
	b := p.sliceData(l)
	p.offset += l
	return b
}

func (p *parser) readString(l int, what string) string {
	return trimName(p.read(l, what))
}

func (p *parser) readDword(what string) uint32 {
	return p.order.Uint32(p.read(4, what))
}

func (p *parser) readWord(what string) uint16 {
	return p.order.Uint16(p.read(2, what))
}

func (p *parser) readByte(what string) uint8 {
	if p.dataBytesRemaining() < 1 {
		panic(p.errorf("unexpected EOF while reading %s", what))
	}
	b := p.data[p.offset]
	p.offset++
	return b
}

// allocTrack appends a new track of the specified length and returns its index.
func (p *parser) allocTrack(rows int) int {
	p.module.Tracks = append(p.module.Tracks, Track{
		Events: p.eventPool.MakeSlice(rows),
	})
	return len(p.module.Tracks) - 1
}
