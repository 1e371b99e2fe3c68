package report

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo describes the bench host
type SystemInfo struct {
	Hostname     string
	OS           string
	Platform     string
	Architecture string
	CPUModel     string
	CPUCores     int
	TotalMemory  string
	Volumes      []Volume
}

// Volume is one mounted filesystem on the bench host
type Volume struct {
	Mountpoint  string
	Filesystem  string
	Total       string
	UsedPercent float64
}

// CollectSystemInfo gathers host details. Fields that cannot be read are left empty.
func CollectSystemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{Architecture: runtime.GOARCH}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCores = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.TotalMemory = formatBytes(vm.Total)
	}

	if parts, err := disk.PartitionsWithContext(ctx, false); err == nil {
		for _, p := range parts {
			usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
			if err != nil || usage.Total == 0 {
				continue
			}
			info.Volumes = append(info.Volumes, Volume{
				Mountpoint:  p.Mountpoint,
				Filesystem:  p.Fstype,
				Total:       formatBytes(usage.Total),
				UsedPercent: usage.UsedPercent,
			})
		}
		sort.Slice(info.Volumes, func(i, j int) bool {
			return info.Volumes[i].Mountpoint < info.Volumes[j].Mountpoint
		})
	}

	return info
}
