package debug

// Runtime logger for debug runs. Emits goroutine count, stack and heap usage
// at a fixed interval so a long recording can be checked for leaks.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/dustin/go-humanize"
)

// Sample is one reading of the runtime counters.
type Sample struct {
	Goroutines uint64
	StackInuse uint64
	HeapAlloc  uint64
	NumGC      uint32
	MaxRSS     uint64
}

// Read takes a Sample now. MaxRSS is zero where the platform cannot report it.
func Read() Sample {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := Sample{
		StackInuse: ms.StackInuse,
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
		MaxRSS:     maxRSS(),
	}
	if samples[0].Value.Kind() == metrics.KindUint64 {
		s.Goroutines = samples[0].Value.Uint64()
	}
	return s
}

// StartRuntimeLogger logs a Sample every interval until ctx is done.
func StartRuntimeLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			s := Read()
			logger.Info("runtime",
				slog.Uint64("goroutines", s.Goroutines),
				slog.String("stack_inuse", humanize.IBytes(s.StackInuse)),
				slog.String("heap_alloc", humanize.IBytes(s.HeapAlloc)),
				slog.String("max_rss", humanize.IBytes(s.MaxRSS)),
				slog.Uint64("num_gc", uint64(s.NumGC)),
			)
		}
	}()
}
