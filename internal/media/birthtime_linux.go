//go:build linux

package media

import (
	"time"

	"golang.org/x/sys/unix"
)

func statFile(full string) (fileStamps, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, full, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BASIC_STATS|unix.STATX_BTIME, &stx)
	if err != nil {
		return fileStamps{}, err
	}
	stamps := fileStamps{
		size:  int64(stx.Size),
		mtime: time.Unix(stx.Mtime.Sec, int64(stx.Mtime.Nsec)),
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		stamps.birth = time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return stamps, nil
}
