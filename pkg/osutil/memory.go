package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup v1 reports this limit when memory is unrestricted.
const cgroupV1Unlimited = 9223372036854771712

var cgroupMemoryLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",                   // v2
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // v1
}

// GetTotalMemory returns the memory available to the process, preferring a
// container limit over the host total.
func GetTotalMemory() uint64 {
	for _, path := range cgroupMemoryLimitFiles {
		if limit, ok := readCgroupLimit(path); ok {
			return limit
		}
	}
	return memory.TotalMemory()
}

func readCgroupLimit(path string) (uint64, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return parseCgroupLimit(string(raw))
}

func parseCgroupLimit(raw string) (uint64, bool) {
	value := strings.TrimSpace(raw)
	if value == "max" {
		return 0, false
	}

	limit, err := strconv.ParseUint(value, 10, 64)
	if err != nil || limit == 0 || limit == cgroupV1Unlimited {
		return 0, false
	}
	return limit, true
}
