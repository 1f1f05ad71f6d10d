//go:build linux || darwin

package debug

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// maxRSS reports the peak resident set size of the process in bytes.
func maxRSS() uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// linux reports kilobytes, darwin bytes
	if runtime.GOOS == "linux" {
		return uint64(ru.Maxrss) * 1024
	}
	return uint64(ru.Maxrss)
}
