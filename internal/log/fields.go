package log

// Canonical field names for structured logging.
const (
	FieldComponent = "component"
	FieldSessionID = "session_id"
	FieldVideoID   = "video_id"
	FieldAuthor    = "author"
	FieldPhase     = "phase"
	FieldCandidate = "candidate"
	FieldStrategy  = "strategy"
	FieldStatus    = "status"
	FieldURL       = "url"
)
