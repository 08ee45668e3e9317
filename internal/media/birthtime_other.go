//go:build !linux && !darwin && !freebsd && !windows

package media

import "os"

func statFile(full string) (fileStamps, error) {
	info, err := os.Stat(full)
	if err != nil {
		return fileStamps{}, err
	}
	return fileStamps{size: info.Size(), mtime: info.ModTime()}, nil
}
