package index

import (
	"log"

	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultMemoryBytes returns the default construction memory budget:
// 80% of physical RAM.
func DefaultMemoryBytes() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Total == 0 {
		log.Printf("WARN could not determine physical memory, assuming 1 GiB: %v", err)
		return 1 << 30
	}
	return vm.Total * 80 / 100
}
