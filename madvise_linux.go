//go:build linux

package cobs

import "golang.org/x/sys/unix"

func madviseRandom(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Madvise(b, unix.MADV_RANDOM)
}

func madviseHugePage(b []byte) {
	if len(b) == 0 {
		return
	}
	// best effort, the kernel may not honour the hint for unaligned
	// or small buffers
	_ = unix.Madvise(b, unix.MADV_HUGEPAGE)
}
