package monitor

import "runtime/debug"

// memoryLimit reads the soft memory limit without changing it.
func memoryLimit() int64 {
	return debug.SetMemoryLimit(-1)
}
