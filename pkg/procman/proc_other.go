//go:build unix && !linux

package procman

func processStart(int) (uint64, bool) { return 0, false }
