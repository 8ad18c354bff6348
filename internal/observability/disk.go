package observability

import (
	"context"
	"fmt"

	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/shirou/gopsutil/v4/disk"
)

type usageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// DiskSampler reads utilisation of the filesystem holding a path.
type DiskSampler struct {
	path  string
	usage usageFunc
}

// NewDiskSampler samples the filesystem that contains path.
func NewDiskSampler(path string) *DiskSampler {
	return &DiskSampler{path: path, usage: disk.UsageWithContext}
}

// Sample returns the current disk usage.
func (s *DiskSampler) Sample(ctx context.Context) (domain.DiskUsage, error) {
	st, err := s.usage(ctx, s.path)
	if err != nil {
		return domain.DiskUsage{}, fmt.Errorf("disk usage of %s: %w", s.path, err)
	}
	return domain.DiskUsage{
		Path:        s.path,
		Total:       st.Total,
		Used:        st.Used,
		UsedPercent: st.UsedPercent,
	}, nil
}
