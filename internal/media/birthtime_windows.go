//go:build windows

package media

import (
	"os"
	"syscall"
	"time"
)

func statFile(full string) (fileStamps, error) {
	info, err := os.Stat(full)
	if err != nil {
		return fileStamps{}, err
	}
	stamps := fileStamps{size: info.Size(), mtime: info.ModTime()}
	if data, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		stamps.birth = time.Unix(0, data.CreationTime.Nanoseconds())
	}
	return stamps, nil
}
