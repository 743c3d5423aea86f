package sysinfo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// cpuinfoBlock renders one processor block the way /proc/cpuinfo does.
func cpuinfoBlock(processor, physicalID, coreID int) string {
	return fmt.Sprintf(`processor	: %d
vendor_id	: GenuineIntel
model name	: Intel(R) Core(TM) i5-8250U CPU @ 1.60GHz
physical id	: %d
siblings	: 8
core id		: %d
cpu cores	: 4

`, processor, physicalID, coreID)
}

func TestParseCoreTopology(t *testing.T) {
	t.Run("HyperThreaded", func(t *testing.T) {
		// Two sockets, two cores each, two threads per core: eight logical
		// processors over four physical cores.
		var data string
		n := 0
		for pkg := 0; pkg < 2; pkg++ {
			for core := 0; core < 2; core++ {
				for thread := 0; thread < 2; thread++ {
					data += cpuinfoBlock(n, pkg, core)
					n++
				}
			}
		}
		assert.Equal(t, 4, parseCoreTopology([]byte(data)))
	})

	t.Run("SingleCore", func(t *testing.T) {
		assert.Equal(t, 1, parseCoreTopology([]byte(cpuinfoBlock(0, 0, 0))))
	})

	t.Run("NoTrailingBlankLine", func(t *testing.T) {
		data := "processor\t: 0\nphysical id\t: 0\ncore id\t\t: 0"
		assert.Equal(t, 1, parseCoreTopology([]byte(data)))
	})

	t.Run("MissingTopologyFields", func(t *testing.T) {
		// Typical of ARM systems, where only processor numbers appear.
		data := "processor\t: 0\nmodel name\t: ARMv7\n\nprocessor\t: 1\nmodel name\t: ARMv7\n"
		assert.Equal(t, 0, parseCoreTopology([]byte(data)))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, 0, parseCoreTopology(nil))
	})
}

func TestPhysicalCores(t *testing.T) {
	n := PhysicalCores()
	assert.GreaterOrEqual(t, n, 1)
}
