package modplay

import (
	"log/slog"

	"github.com/quasilyte/modplay/modfile"
)

type moduleCompiler struct {
	result *module
	logger *slog.Logger
}

func compileModule(mod *modfile.Module, logger *slog.Logger) *module {
	c := &moduleCompiler{
		result: &module{mod: mod},
		logger: logger,
	}
	c.compile()
	return c.result
}

func (c *moduleCompiler) compile() {
	m := c.result
	mod := m.mod

	m.quirks = mod.Quirks
	m.flowMode = mod.FlowMode
	m.dialect = mod.Dialect
	m.periodType = mod.PeriodType
	m.c4Rate = mod.C4Rate
	m.compareVBlank = mod.CompareVBlank
	m.volBase = mod.VolBase
	m.gvolBase = mod.GVolBase
	m.timeFactor = mod.TimeFactor
	m.rrate = mod.RefreshRate

	c.compileSamples()
	c.compileScanTables()
}

func (c *moduleCompiler) compileSamples() {
	m := c.result
	m.samples = make([]sampleData, len(m.mod.Samples))
	for i := range m.mod.Samples {
		src := &m.mod.Samples[i]
		dst := &m.samples[i]
		dst.pcm = make([]int16, src.Length+2*samplePad)
		copy(dst.pcm[samplePad:], src.Data[:src.Length])
		dst.c5spd = src.C5Speed
	}
}

func (c *moduleCompiler) compileScanTables() {
	m := c.result
	m.scanCnt = make([][]uint8, len(m.mod.Orders))
	numSkipped := 0
	for i, pat := range m.mod.Orders {
		rows := 1
		if m.isValidPattern(int(pat)) {
			if n := m.patternRows(int(pat)); n != 0 {
				rows = n
			}
		} else if pat != modfile.OrderSkip && pat != modfile.OrderEnd {
			numSkipped++
		}
		m.scanCnt[i] = make([]uint8, rows)
	}
	if numSkipped != 0 {
		c.logger.Debug("orders reference missing patterns", "count", numSkipped)
	}
}

// restoreSample copies the original PCM of the sample back.
func (m *module) restoreSample(i int) {
	src := &m.mod.Samples[i]
	dst := &m.samples[i]
	copy(dst.pcm[samplePad:], src.Data[:src.Length])
	dst.dirty = false
}
