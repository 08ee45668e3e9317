package media

// Item is one scanned media file. Items are recomputed on every scan and never
// persisted.
type Item struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Folder       string `json:"folder"`
	Type         string `json:"type"`
	CapturedAtMs int64  `json:"capturedAtMs"`
	MtimeMs      int64  `json:"mtimeMs"`
	SizeBytes    int64  `json:"sizeBytes"`
}

// IsImage reports whether the item is a still image.
func (i Item) IsImage() bool { return i.Type == "image" }

// IsVideo reports whether the item is a video clip.
func (i Item) IsVideo() bool { return i.Type == "video" }
