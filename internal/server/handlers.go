package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	verrors "github.com/matzehuels/visio2svg/pkg/errors"
	"github.com/matzehuels/visio2svg/pkg/observability"
	"github.com/matzehuels/visio2svg/pkg/pipeline"
	"github.com/matzehuels/visio2svg/pkg/posttreat"
)

const contentTypeSVG = "image/svg+xml"

// Response headers of the post-treat and single page endpoints.
const (
	HeaderImages   = "X-Images"
	HeaderReplaced = "X-Images-Replaced"
	HeaderCacheHit = "X-Cache-Hit"
)

type pageResponse struct {
	Name   string           `json:"name"`
	SVG    string           `json:"svg"`
	Report posttreat.Report `json:"report"`
}

type convertResponse struct {
	RequestID    string         `json:"request_id"`
	DocumentHash string         `json:"document_hash"`
	Mode         string         `json:"mode"`
	CacheHit     bool           `json:"cache_hit"`
	Pages        []pageResponse `json:"pages"`
	Stats        pipeline.Stats `json:"stats"`
}

type errorBody struct {
	Code    verrors.Code `json:"code"`
	Message string       `json:"message"`
}

type errorResponse struct {
	RequestID string    `json:"request_id"`
	Error     errorBody `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	opts := pipeline.Options{Mode: q.Get("mode")}
	indent, err := parseIndent(q.Get("indent"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Indent = indent
	if v := q.Get("refresh"); v != "" {
		opts.Refresh, err = strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, verrors.New(verrors.ErrCodeInvalidInput, "invalid refresh: %q", v))
			return
		}
	}

	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.Runner.Convert(ctx, data, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if name := q.Get("page"); name != "" {
		page, ok := result.Lookup(name)
		if !ok {
			s.writeError(w, r, verrors.New(verrors.ErrCodeNotFound, "no page named %q", name))
			return
		}
		w.Header().Set(HeaderCacheHit, strconv.FormatBool(result.CacheHit))
		writeSVG(w, page.SVG, page.Report)
		return
	}

	resp := convertResponse{
		RequestID:    RequestID(ctx),
		DocumentHash: result.DocumentHash,
		Mode:         result.Mode,
		CacheHit:     result.CacheHit,
		Pages:        make([]pageResponse, len(result.Pages)),
		Stats:        result.Stats,
	}
	for i, p := range result.Pages {
		resp.Pages[i] = pageResponse{Name: p.Name, SVG: string(p.SVG), Report: p.Report}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePostTreat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	indent, err := parseIndent(q.Get("indent"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	treater := *s.Treater
	switch {
	case indent < 0:
		treater.Indent = 0
	case indent > 0:
		treater.Indent = indent
	}
	name := q.Get("name")
	if name == "" {
		name = "request"
	}

	out, report, err := treater.PostTreat(r.Context(), data, name)
	if err != nil {
		s.writeError(w, r, verrors.Wrap(verrors.ErrCodeInternal, err, "write page"))
		return
	}
	writeSVG(w, out, report)
}

// parseIndent reads the indent query parameter with pipeline semantics:
// absent means the default and 0 means compact.
func parseIndent(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, verrors.New(verrors.ErrCodeInvalidInput, "invalid indent: %q", v)
	}
	if n == 0 {
		return -1, nil
	}
	return n, nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge{limit: tooLarge.Limit}
		}
		return nil, verrors.Wrap(verrors.ErrCodeInvalidInput, err, "read body")
	}
	if len(data) == 0 {
		return nil, verrors.New(verrors.ErrCodeInvalidInput, "empty body")
	}
	return data, nil
}

type errBodyTooLarge struct{ limit int64 }

func (e errBodyTooLarge) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.limit)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := StatusCode(err)
	observability.HTTP().OnError(ctx, r.Method, r.URL.Path, err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", RequestID(ctx))
	} else {
		s.Logger.Debug("request rejected", "path", r.URL.Path, "err", err, "request_id", RequestID(ctx))
	}

	code := verrors.GetCode(err)
	if code == "" {
		code = verrors.ErrCodeInternal
		if status == http.StatusRequestEntityTooLarge {
			code = verrors.ErrCodeInvalidInput
		}
	}
	writeJSON(w, status, errorResponse{
		RequestID: RequestID(ctx),
		Error:     errorBody{Code: code, Message: verrors.UserMessage(err)},
	})
}

// StatusCode maps an error to the HTTP status reported for it.
func StatusCode(err error) int {
	var tooLarge errBodyTooLarge
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch verrors.GetCode(err) {
	case verrors.ErrCodeInvalidInput, verrors.ErrCodeInvalidMode, verrors.ErrCodeInvalidName:
		return http.StatusBadRequest
	case verrors.ErrCodeNotFound:
		return http.StatusNotFound
	case verrors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	case verrors.ErrCodeGenerationFailed, verrors.ErrCodeNoOutput:
		return http.StatusUnprocessableEntity
	case verrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeSVG(w http.ResponseWriter, svg []byte, report posttreat.Report) {
	h := w.Header()
	h.Set("Content-Type", contentTypeSVG)
	h.Set(HeaderImages, strconv.Itoa(report.Images))
	h.Set(HeaderReplaced, strconv.Itoa(report.Replaced))
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
