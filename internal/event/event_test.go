package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "RunStarted", typ: RunStarted},
		{want: "ScanError", typ: ScanError},
		{want: "SelectionComplete", typ: SelectionComplete},
		{want: "FileUploaded", typ: FileUploaded},
		{want: "FileSkipped", typ: FileSkipped},
		{want: "UploadFailed", typ: UploadFailed},
		{want: "FileDeleted", typ: FileDeleted},
		{want: "RunComplete", typ: RunComplete},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
}

func TestEventZeroValue(t *testing.T) {
	var e Event
	assert.Equal(t, Type(0), e.Type)
	assert.True(t, e.Timestamp.IsZero())
	assert.Empty(t, e.Path)
	assert.Zero(t, e.Size)
	assert.Empty(t, e.Reason)
	require.NoError(t, e.Error)
}

func TestEventFields(t *testing.T) {
	now := time.Now()
	e := Event{
		Type:      FileUploaded,
		Timestamp: now,
		RunID:     "run-1",
		Path:      "/data/file.txt",
		Size:      1024,
	}
	assert.Equal(t, FileUploaded, e.Type)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, "/data/file.txt", e.Path)
	assert.Equal(t, int64(1024), e.Size)
}
