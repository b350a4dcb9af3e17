package seqkit

import (
	"fmt"

	"fastx-gateway/internal/config"
)

// ResourceLimits bound a seqkit container.
type ResourceLimits struct {
	CPUShares int64 `json:"cpu_shares"` // 1024 = 1 CPU core
	MemoryMB  int64 `json:"memory_mb"`  // Hard memory limit
	PidsLimit int64 `json:"pids_limit"` // Max processes
	DiskMB    int64 `json:"disk_mb"`    // Tmpfs size for /tmp
}

func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		CPUShares: 1024,
		MemoryMB:  512,
		PidsLimit: 64,
		DiskMB:    256,
	}
}

// LimitsFromConfig converts configured limits, falling back to the defaults
// when none are set.
func LimitsFromConfig(l config.ToolLimits) ResourceLimits {
	rl := ResourceLimits(l)
	if rl == (ResourceLimits{}) {
		return DefaultLimits()
	}
	return rl
}

func (rl ResourceLimits) Validate() error {
	if rl.CPUShares < 2 || rl.CPUShares > 8192 {
		return fmt.Errorf("cpu_shares must be 2-8192, got %d", rl.CPUShares)
	}
	if rl.MemoryMB < 32 || rl.MemoryMB > 16384 {
		return fmt.Errorf("memory_mb must be 32-16384, got %d", rl.MemoryMB)
	}
	if rl.PidsLimit < 8 || rl.PidsLimit > 2000 {
		return fmt.Errorf("pids_limit must be 8-2000, got %d", rl.PidsLimit)
	}
	if rl.DiskMB < 1 || rl.DiskMB > 10240 {
		return fmt.Errorf("disk_mb must be 1-10240, got %d", rl.DiskMB)
	}
	return nil
}

// dockerArgs renders the limits as `docker run` flags.
func (rl ResourceLimits) dockerArgs() []string {
	return []string{
		"--memory", fmt.Sprintf("%dm", rl.MemoryMB),
		"--memory-swap", fmt.Sprintf("%dm", rl.MemoryMB),
		"--pids-limit", fmt.Sprintf("%d", rl.PidsLimit),
		"--cpus", fmt.Sprintf("%.2f", float64(rl.CPUShares)/1024.0),
		"--tmpfs", fmt.Sprintf("/tmp:rw,nosuid,nodev,size=%dm", rl.DiskMB),
		"--ulimit", "core=0",
	}
}
