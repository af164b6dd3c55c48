package modplay

import (
	"unsafe"
)

func sessionMemoryUsage(s *Session) uint {
	memoryUsage := 0
	for _, smp := range s.m.samples {
		memoryUsage += len(smp.pcm) * 2
	}
	memoryUsage += len(s.m.scan) * int(unsafe.Sizeof(scanData{}))
	memoryUsage += int(unsafe.Sizeof(s.m.ordInfo))
	for _, cnt := range s.m.scanCnt {
		memoryUsage += len(cnt)
	}
	memoryUsage += len(s.p.xc) * int(unsafe.Sizeof(channel{}))
	memoryUsage += len(s.virt.voices) * int(unsafe.Sizeof(mixerVoice{}))
	memoryUsage += len(s.mixer.buf32) * 4
	memoryUsage += len(s.mixer.buffer)

	return uint(memoryUsage)
}
