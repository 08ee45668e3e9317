package media

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// exifCaptureTime returns the DateTimeOriginal recorded by the camera.
func exifCaptureTime(full string) (time.Time, error) {
	f, err := os.Open(full)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}
	return x.DateTime()
}
