package executor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

const memoryPollInterval = 20 * time.Millisecond

// sampleProcessMemory polls the RSS of pid until ctx is cancelled,
// recording the peak into peakKB. When limitKB > 0 and the process
// exceeds it, onExceed is invoked once and polling stops. Figures are
// best-effort; a vanished process simply ends the loop.
func sampleProcessMemory(ctx context.Context, pid int, limitKB uint64, peakKB *atomic.Uint64, onExceed func()) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return
	}
	ticker := time.NewTicker(memoryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			memInfo, err := proc.MemoryInfo()
			if err != nil {
				// Process has likely exited.
				return
			}
			currentKB := memInfo.RSS / 1024
			for {
				old := peakKB.Load()
				if currentKB <= old || peakKB.CompareAndSwap(old, currentKB) {
					break
				}
			}
			if limitKB > 0 && currentKB > limitKB {
				onExceed()
				return
			}
		}
	}
}
