package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// LibraryItem describes one media file and its review state.
type LibraryItem struct {
	Path              string   `json:"path"`
	Name              string   `json:"name"`
	Folder            string   `json:"folder"`
	Type              string   `json:"type"`
	CapturedAtMs      int64    `json:"capturedAtMs"`
	MtimeMs           int64    `json:"mtimeMs"`
	SizeBytes         int64    `json:"sizeBytes"`
	Status            string   `json:"status"`
	ReviewedAt        string   `json:"reviewedAt,omitempty"`
	FavoritedAt       string   `json:"favoritedAt,omitempty"`
	Caption           string   `json:"caption"`
	Critter           *bool    `json:"critter"`
	CritterConfidence *float64 `json:"critterConfidence"`
	CritterCheckedAt  string   `json:"critterCheckedAt,omitempty"`
	CritterModel      string   `json:"critterModel,omitempty"`
	CritterError      string   `json:"critterError,omitempty"`
}

// Counts summarizes review progress.
type Counts struct {
	Total     int `json:"total"`
	Reviewed  int `json:"reviewed"`
	Remaining int `json:"remaining"`
}

// ItemsResponse lists the unreviewed queue.
type ItemsResponse struct {
	OK     bool          `json:"ok"`
	Items  []LibraryItem `json:"items"`
	Counts Counts        `json:"counts"`
}

// LibraryResponse lists every scanned item including reviewed ones.
type LibraryResponse struct {
	OK     bool          `json:"ok"`
	Items  []LibraryItem `json:"items"`
	Counts Counts        `json:"counts"`
}

// ActionRequest applies a review decision.
type ActionRequest struct {
	Path   string `json:"path"`
	Action string `json:"action"`
}

// ActionResponse reports where the file ended up.
type ActionResponse struct {
	OK          bool   `json:"ok"`
	PrevPath    string `json:"prevPath"`
	Path        string `json:"path"`
	Status      string `json:"status"`
	ReviewedAt  string `json:"reviewedAt,omitempty"`
	FavoritedAt string `json:"favoritedAt,omitempty"`
	Missing     bool   `json:"missing"`
}

// UndoResponse reports the restored path. OK is false when nothing was undone.
type UndoResponse struct {
	OK   bool   `json:"ok"`
	Path string `json:"path,omitempty"`
}

// PathRequest carries a single media key.
type PathRequest struct {
	Path string `json:"path"`
}

// CaptionRequest stores a manual caption.
type CaptionRequest struct {
	Path    string `json:"path"`
	Caption string `json:"caption"`
}

// CaptionResponse reports a stored caption.
type CaptionResponse struct {
	OK      bool   `json:"ok"`
	Path    string `json:"path"`
	Caption string `json:"caption"`
	Model   string `json:"model,omitempty"`
}

// DetectRequest asks for an animal-presence verdict.
type DetectRequest struct {
	Path  string `json:"path"`
	Force bool   `json:"force"`
}

// DetectResponse carries a detection result.
type DetectResponse struct {
	OK         bool     `json:"ok"`
	Path       string   `json:"path"`
	Critter    *bool    `json:"critter"`
	Confidence *float64 `json:"confidence"`
	Model      string   `json:"model,omitempty"`
	CheckedAt  string   `json:"checkedAt,omitempty"`
	Cached     bool     `json:"cached"`
	Error      string   `json:"error,omitempty"`
}

// BatchRequest starts a batch sweep.
type BatchRequest struct {
	Scope string `json:"scope"`
}

// BatchJob mirrors batch progress.
type BatchJob struct {
	ID         string `json:"id"`
	Scope      string `json:"scope"`
	Status     string `json:"status"`
	Phase      string `json:"phase"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Matched    int    `json:"matched"`
	Deleted    int    `json:"deleted"`
	Failed     int    `json:"failed"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchResponse wraps the current job. Status is "idle" when no job has run.
type BatchResponse struct {
	OK     bool      `json:"ok"`
	Status string    `json:"status,omitempty"`
	Job    *BatchJob `json:"job,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// TranscodeResponse reports a ready transcode.
type TranscodeResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	Path   string `json:"path"`
}

// PreviewFramesResponse lists preview frame keys in order.
type PreviewFramesResponse struct {
	OK     bool     `json:"ok"`
	Frames []string `json:"frames"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// LLMStatus reports vision model configuration.
type LLMStatus struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
}

// StatusResponse aggregates runtime information for health displays.
type StatusResponse struct {
	OK             bool               `json:"ok"`
	MediaRoot      string             `json:"mediaRoot"`
	LedgerPath     string             `json:"ledgerPath"`
	SessionDate    string             `json:"sessionDate"`
	UndoDepth      int                `json:"undoDepth"`
	PendingJobs    int                `json:"pendingJobs"`
	LLM            LLMStatus          `json:"llm"`
	Dependencies   []DependencyStatus `json:"dependencies"`
	Batch          *BatchJob          `json:"batch,omitempty"`
	JournalEnabled bool               `json:"journalEnabled"`
}

// HistoryEntry is one journal row.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Path      string `json:"path,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// HistoryResponse lists recent journal rows, newest first.
type HistoryResponse struct {
	OK      bool           `json:"ok"`
	Entries []HistoryEntry `json:"entries"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
