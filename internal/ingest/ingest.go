// Package ingest assembles chunked uploads into a persisted source file.
//
// The first chunk of an upload names the file; later chunks only carry
// bytes. Once finished, the assembled bytes are written under the uploads
// directory and the table name is derived from the original filename.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"datasetd/internal/apperrors"
	"datasetd/internal/storage"
)

// Chunk is one piece of an upload stream.
type Chunk struct {
	Filename string
	Data     []byte
}

// Upload describes an assembled, persisted upload.
type Upload struct {
	Filename string // original file name, base only
	Path     string // persisted location
	Table    string // normalized table name derived from Filename
	Size     int64
	Digest   string // xxh3 64-bit, hex
}

// Assembler collects chunks for a single upload. It is not safe for
// concurrent use.
type Assembler struct {
	dir      string
	maxBytes int64

	name   string
	buf    bytes.Buffer
	hasher *xxh3.Hasher
	chunks int
}

// NewAssembler returns an Assembler persisting into dir. maxBytes <= 0
// disables the size cap.
func NewAssembler(dir string, maxBytes int64) *Assembler {
	return &Assembler{dir: dir, maxBytes: maxBytes, hasher: xxh3.New()}
}

// Add appends a chunk. The first chunk must carry a filename.
func (a *Assembler) Add(c Chunk) error {
	if a.chunks == 0 {
		name, err := cleanFilename(c.Filename)
		if err != nil {
			return err
		}
		a.name = name
	}
	a.chunks++
	if a.maxBytes > 0 && int64(a.buf.Len()+len(c.Data)) > a.maxBytes {
		return fmt.Errorf("%w: upload exceeds %d bytes", apperrors.ErrInvalidUpload, a.maxBytes)
	}
	a.buf.Write(c.Data)
	_, _ = a.hasher.Write(c.Data)
	return nil
}

// Feed feeds r to the assembler in chunkSize pieces; the first chunk
// carries filename.
func (a *Assembler) Feed(r io.Reader, filename string, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = 64 << 10
	}
	p := make([]byte, chunkSize)
	first := true
	for {
		n, err := io.ReadFull(r, p)
		if n > 0 || first {
			c := Chunk{Data: append([]byte(nil), p[:n]...)}
			if first {
				c.Filename = filename
				first = false
			}
			if aerr := a.Add(c); aerr != nil {
				return aerr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read: %w", apperrors.ErrInvalidUpload, err)
		}
	}
}

// Finish persists the assembled bytes and returns the upload description.
// An upload without chunks or without bytes is invalid.
func (a *Assembler) Finish() (Upload, error) {
	if a.chunks == 0 {
		return Upload{}, fmt.Errorf("%w: no chunks received", apperrors.ErrInvalidUpload)
	}
	if a.buf.Len() == 0 {
		return Upload{}, fmt.Errorf("%w: %s is empty", apperrors.ErrInvalidUpload, a.name)
	}
	digest := fmt.Sprintf("%016x", a.hasher.Sum64())

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return Upload{}, fmt.Errorf("ingest: mkdir %s: %w", a.dir, err)
	}
	path := filepath.Join(a.dir, digest+"-"+a.name)
	if err := os.WriteFile(path, a.buf.Bytes(), 0o644); err != nil {
		return Upload{}, fmt.Errorf("ingest: write %s: %w", path, err)
	}
	return Upload{
		Filename: a.name,
		Path:     path,
		Table:    storage.TableName(a.name),
		Size:     int64(a.buf.Len()),
		Digest:   digest,
	}, nil
}

// cleanFilename keeps the base name of a client-supplied filename.
func cleanFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return "", fmt.Errorf("%w: first chunk has no filename", apperrors.ErrInvalidUpload)
	}
	base := filepath.Base(name)
	if base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: bad filename %q", apperrors.ErrInvalidUpload, name)
	}
	return base, nil
}
