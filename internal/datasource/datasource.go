// Package datasource defines how the pipeline obtains raw source bytes.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream of source bytes. Name reports the logical
// file name (used to pick a parser and derive table names).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}
