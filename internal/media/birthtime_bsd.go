//go:build darwin || freebsd

package media

import (
	"time"

	"golang.org/x/sys/unix"
)

func statFile(full string) (fileStamps, error) {
	var st unix.Stat_t
	if err := unix.Stat(full, &st); err != nil {
		return fileStamps{}, err
	}
	return fileStamps{
		size:  st.Size,
		mtime: time.Unix(st.Mtim.Unix()),
		birth: time.Unix(st.Btim.Unix()),
	}, nil
}
