package ui

import "github.com/bamsammich/forager/internal/event"

// Event is the engine event type consumed by presenters.
type Event = event.Event

// Re-export event types for convenience.
const (
	RunStarted        = event.RunStarted
	ScanError         = event.ScanError
	SelectionComplete = event.SelectionComplete
	FileUploaded      = event.FileUploaded
	FileSkipped       = event.FileSkipped
	UploadFailed      = event.UploadFailed
	FileDeleted       = event.FileDeleted
	RunComplete       = event.RunComplete
)
