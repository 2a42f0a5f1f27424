package app

import "syscall"

// diskUsage returns disk usage stats for the given path, or nil on error.
// The data root holds orbit files and batch output, so operators want to
// see headroom before queueing large jobs.
func diskUsage(path string) map[string]any {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	used := total - stat.Bfree*uint64(stat.Bsize)
	out := map[string]any{
		"total_bytes":     total,
		"used_bytes":      used,
		"available_bytes": free,
	}
	if total > 0 {
		out["used_percent"] = float64(used) / float64(total) * 100
	}
	return out
}
