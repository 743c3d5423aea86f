// Package sysinfo reports host hardware details used to size worker pools.
package sysinfo

import (
	"bufio"
	"bytes"
	"os"
	"runtime"
	"strings"
)

// PhysicalCores returns the number of physical processor cores, ignoring
// SMT siblings. When the topology cannot be read it falls back to
// runtime.NumCPU. The result is always at least 1.
func PhysicalCores() int {
	if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		if n := parseCoreTopology(data); n > 0 {
			return n
		}
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// parseCoreTopology counts distinct (physical id, core id) pairs in
// /proc/cpuinfo content. Processor blocks are separated by blank lines.
// Returns 0 when the topology fields are absent, as on many non-x86
// machines.
func parseCoreTopology(data []byte) int {
	type core struct{ pkg, id string }

	seen := make(map[core]struct{})
	var pkg, id string
	flush := func() {
		if id != "" {
			seen[core{pkg, id}] = struct{}{}
		}
		pkg, id = "", ""
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "physical id":
			pkg = strings.TrimSpace(value)
		case "core id":
			id = strings.TrimSpace(value)
		}
	}
	flush()

	return len(seen)
}
