// Package uploader defines the sink capability that receives selected files
// and the built-in sink implementations.
package uploader

import "context"

// Uploader transfers one file's bytes plus a metadata bundle to a sink.
// The engine treats it as opaque: success means the sink acknowledged the
// transfer, nothing more.
type Uploader interface {
	Upload(ctx context.Context, path string, metadata map[string]string) error
	Close() error
}
