package mediaroot

import (
	"path"
	"regexp"
	"strings"
)

// ArtifactDir is the reserved hidden subtree holding derived artifacts.
const ArtifactDir = ".camreview"

// legacyTrashDir is the pre-dated-folder trash directory still skipped by scans.
const legacyTrashDir = "trash"

var destinationFolderPattern = regexp.MustCompile(`(?i)^(keep|trash|favorites)_\d{4}-\d{2}-\d{2}$`)

// Media kinds derived from file extensions.
const (
	KindImage = "image"
	KindVideo = "video"
)

var mediaKinds = map[string]string{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".mp4":  KindVideo,
	".mov":  KindVideo,
}

var previewSidecarExts = []string{".gif", ".jpg", ".jpeg", ".png"}

// KindForExt returns the media kind for an extension and whether it is supported.
func KindForExt(ext string) (string, bool) {
	kind, ok := mediaKinds[strings.ToLower(ext)]
	return kind, ok
}

// KindForKey returns the media kind for a key's extension.
func KindForKey(key string) (string, bool) {
	return KindForExt(path.Ext(key))
}

// ContentType maps a file extension to the MIME type served for it.
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".mov":
		return "video/quicktime"
	case ".mp4":
		return "video/mp4"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// IsReservedDir reports whether a directory name must be skipped by scans:
// the artifact cache, the legacy trash folder, or an action destination folder.
func IsReservedDir(name string) bool {
	lower := strings.ToLower(name)
	if lower == ArtifactDir || lower == legacyTrashDir {
		return true
	}
	return IsDestinationFolder(name)
}

// IsDestinationFolder reports whether name is a dated action folder such as
// Keep_2024-01-01.
func IsDestinationFolder(name string) bool {
	return destinationFolderPattern.MatchString(name)
}

// DestinationFolder returns the folder name an action moves files into.
func DestinationFolder(action, sessionDate string) string {
	var prefix string
	switch action {
	case "delete":
		prefix = "Trash"
	case "favorite":
		prefix = "Favorites"
	default:
		prefix = "Keep"
	}
	return prefix + "_" + sessionDate
}

// InFolder reports whether key already lies beneath folder (case-insensitive).
func InFolder(key, folder string) bool {
	return strings.HasPrefix(strings.ToLower(key), strings.ToLower(folder)+"/")
}

func splitStem(key string) (dir, stem string) {
	key = NormalizeKey(key)
	dir = path.Dir(key)
	if dir == "." {
		dir = ""
	}
	base := path.Base(key)
	stem = strings.TrimSuffix(base, path.Ext(base))
	return dir, stem
}

// PreviewFrameDir returns the key of the directory holding a video's preview frames.
func PreviewFrameDir(key string) string {
	dir, stem := splitStem(key)
	return path.Join(ArtifactDir, "previews", dir, stem)
}

// PreviewFramePattern returns the frame output pattern handed to ffmpeg.
func PreviewFramePattern(key string) string {
	return path.Join(PreviewFrameDir(key), "frame_%03d.jpg")
}

// TranscodeKey returns the key of a video's mobile transcode.
func TranscodeKey(key string) string {
	dir, stem := splitStem(key)
	return path.Join(ArtifactDir, "transcodes", dir, stem+".mp4")
}

// PreviewCandidates lists sidecar preview keys in lookup order.
func PreviewCandidates(key string) []string {
	dir, stem := splitStem(key)
	base := path.Join(dir, stem)
	out := make([]string, 0, len(previewSidecarExts)*2)
	for _, ext := range previewSidecarExts {
		out = append(out, path.Join(ArtifactDir, "previews", base+ext))
		out = append(out, base+ext)
	}
	return out
}

// IsFrameName reports whether name is a generated preview frame file.
func IsFrameName(name string) bool {
	return strings.HasPrefix(name, "frame_") && strings.HasSuffix(name, ".jpg")
}
