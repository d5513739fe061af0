//go:build !linux

package cobs

func madviseRandom(b []byte)   {}
func madviseHugePage(b []byte) {}
