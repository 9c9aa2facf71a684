package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	RunStarted Type = iota + 1
	ScanError
	SelectionComplete
	FileUploaded
	FileSkipped
	UploadFailed
	FileDeleted
	RunComplete
)

var typeNames = [...]string{
	RunStarted:        "RunStarted",
	ScanError:         "ScanError",
	SelectionComplete: "SelectionComplete",
	FileUploaded:      "FileUploaded",
	FileSkipped:       "FileSkipped",
	UploadFailed:      "UploadFailed",
	FileDeleted:       "FileDeleted",
	RunComplete:       "RunComplete",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	RunID     string
	Path      string // absolute path of the file involved
	Size      int64
	Reason    string // skip reason (FileSkipped)
	Selected  int    // batch size (SelectionComplete)
	Error     error
}
