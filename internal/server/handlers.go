package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"datasetd/internal/apperrors"
	"datasetd/internal/datasource/file"
	"datasetd/internal/ingest"
	"datasetd/internal/pipeline"
	"datasetd/internal/query"
	"datasetd/internal/xmldoc"
)

// maxQueryBody caps the JSON body of a query request.
const maxQueryBody = 1 << 20

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Table   string `json:"table,omitempty"`
	Rows    int64  `json:"rows"`
	Digest  string `json:"digest,omitempty"`
	Error   string `json:"error,omitempty"`
}

type queryRequest struct {
	Filters map[string]string `json:"filters"`
}

type queryResponse struct {
	Rows  []string `json:"rows"`
	Count int      `json:"count"`
}

// handleUpload streams the "file" part through an ingest.Assembler and runs
// the orchestrator on the persisted result.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+64<<10)

	mr, err := r.MultipartReader()
	if err != nil {
		s.uploadError(w, fmt.Errorf("%w: %w", apperrors.ErrInvalidUpload, err), uploadResponse{})
		return
	}

	table := strings.TrimSpace(r.URL.Query().Get("table"))
	asm := ingest.NewAssembler(s.cfg.UploadsDir, s.cfg.MaxUploadBytes)
	gotFile := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.uploadError(w, fmt.Errorf("%w: %w", apperrors.ErrInvalidUpload, err), uploadResponse{})
			return
		}
		switch part.FormName() {
		case "file":
			if gotFile {
				err = fmt.Errorf("%w: more than one file part", apperrors.ErrInvalidUpload)
				break
			}
			gotFile = true
			err = asm.Feed(part, part.FileName(), s.cfg.ChunkSize)
		case "table":
			table, err = readField(part)
		}
		_ = part.Close()
		if err != nil {
			s.uploadError(w, err, uploadResponse{})
			return
		}
	}
	if !gotFile {
		s.uploadError(w, fmt.Errorf("%w: missing file part", apperrors.ErrInvalidUpload), uploadResponse{})
		return
	}

	up, err := asm.Finish()
	if err != nil {
		s.uploadError(w, err, uploadResponse{})
		return
	}
	if table == "" {
		table = up.Table
	}
	s.log.Info("upload received",
		zap.String("file", up.Filename),
		zap.Int64("bytes", up.Size),
		zap.String("digest", up.Digest),
		zap.String("table", table),
	)

	res, err := s.orch.Load(r.Context(), file.NewLocal(up.Path), table)
	resp := uploadResponse{
		Success: err == nil && res.Valid,
		Message: res.Message,
		Table:   res.Table,
		Rows:    res.Rows,
		Digest:  up.Digest,
	}
	if err != nil {
		s.uploadError(w, err, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) uploadError(w http.ResponseWriter, err error, resp uploadResponse) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("upload failed", zap.Error(err))
	} else {
		s.log.Warn("upload rejected", zap.Error(err))
	}
	resp.Success = false
	resp.Error = code
	if resp.Message == "" {
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}

// handleQuery runs a filter query against the current dataset under the
// orchestrator's read lock.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = errorResponse(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}

	var res query.Result
	err := s.orch.View(func(doc *xmldoc.Document, _ pipeline.Status) error {
		var err error
		res, err = s.engine.Run(r.Context(), doc, req.Filters)
		return err
	})
	if err != nil {
		status, code := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("query failed", zap.Error(err))
		}
		_ = errorResponse(w, status, code, err.Error())
		return
	}

	rows := res.Rows
	if rows == nil {
		rows = []string{}
	}
	writeJSON(w, http.StatusOK, queryResponse{Rows: rows, Count: len(rows)})
}

func readField(p *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(p, 1024))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", apperrors.ErrInvalidUpload, p.FormName(), err)
	}
	return strings.TrimSpace(string(b)), nil
}
