package server

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/spritestack/pkg/buildinfo"
	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/pipeline"
	"github.com/matzehuels/spritestack/pkg/sprite"
	"github.com/matzehuels/spritestack/pkg/studio"
)

type sessionResponse struct {
	ID         string            `json:"id"`
	Config     pipeline.Options  `json:"config"`
	Categories []sprite.Category `json:"categories"`
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type visibilityRequest struct {
	Show *bool `json:"show"`
}

type frameResponse struct {
	Index   int          `json:"index"`
	Length  int          `json:"length"`
	State   string       `json:"state"`
	Frame   sprite.Frame `json:"frame"`
	PixelX  int          `json:"pixel_x"`
	PixelY  int          `json:"pixel_y"`
	Columns int          `json:"columns"`
	Rows    int          `json:"rows"`
	Derived bool         `json:"derived"`
	Width   int          `json:"width,omitempty"`
	Height  int          `json:"height,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"build":    buildinfo.Get(),
	})
}

// configRequest is the body of PUT /sessions/{id}/config: the settings a
// live session can change. Unknown fields are rejected.
type configRequest struct {
	Name     string `json:"name,omitempty"`
	Format   string `json:"format,omitempty"`
	FPS      int    `json:"fps,omitempty"`
	Scale    int    `json:"scale,omitempty"`
	CellSize int    `json:"cell_size,omitempty"`
}

func (c configRequest) options() pipeline.Options {
	return pipeline.Options{
		Name:     c.Name,
		Format:   c.Format,
		FPS:      c.FPS,
		Scale:    c.Scale,
		CellSize: c.CellSize,
	}
}

// createRequest is the body of POST /sessions. Seed and categories are
// fixed for the session's lifetime.
type createRequest struct {
	configRequest
	Seed       uint64            `json:"seed,omitempty"`
	Categories []sprite.Category `json:"categories,omitempty"`
}

func (c createRequest) options() pipeline.Options {
	o := c.configRequest.options()
	o.Seed = c.Seed
	o.Categories = c.Categories
	return o
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	opts := withDefaults(req.options(), s.defaults)
	opts.Logger = s.logger
	sess, err := s.sessions.Create(r.Context(), func() (*studio.Studio, error) {
		st, err := studio.New(s.runner, opts)
		if err != nil {
			return nil, err
		}
		st.Play()
		return st, nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("session created", "id", sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:         sess.ID,
		Config:     sess.Studio.Config(),
		Categories: sess.Studio.Categories(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), sessionFrom(r).ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	writeJSON(w, http.StatusOK, s.runner.Compositor.Inspect(r.Context(), st.Layers()))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := r.ParseMultipartForm(s.maxBody); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid multipart upload"))
		return
	}

	category := r.FormValue("category")
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "no files in upload"))
		return
	}
	files := make([]sprite.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", h.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", h.Filename))
			return
		}
		files = append(files, sprite.File{Name: h.Filename, Data: data})
	}

	added, err := st.Intake(files, category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.refresh(w, r, st) {
		return
	}
	writeJSON(w, http.StatusCreated, s.runner.Compositor.Inspect(r.Context(), added))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	// Out-of-range moves are ignored, not rejected.
	moved := st.Move(req.From, req.To)
	if moved && !s.refresh(w, r, st) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "layers": layerNames(st.Layers())})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidName, err, "invalid layer name"))
		return
	}
	var req visibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Show == nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "show is required"))
		return
	}
	if err := st.SetVisibility(name, *req.Show); err != nil {
		s.writeError(w, err)
		return
	}
	if !s.refresh(w, r, st) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "show": *req.Show})
}

func (s *Server) handleRandomize(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	st.Randomize()
	if !s.refresh(w, r, st) {
		return
	}
	writeJSON(w, http.StatusOK, st.Layers())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Studio.Config())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	before := st.Config().CellSize
	if err := st.Configure(req.options()); err != nil {
		s.writeError(w, err)
		return
	}
	if st.Config().CellSize != before && !s.refresh(w, r, st) {
		return
	}
	writeJSON(w, http.StatusOK, st.Config())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	cfg := st.Config()
	f := st.Frame()
	px, py := f.Pixels(cfg.CellSize)
	grid, derived := st.Grid()
	resp := frameResponse{
		Index:   st.FrameIndex(),
		Length:  st.Clock().Len(),
		State:   st.Clock().State().String(),
		Frame:   f,
		PixelX:  px,
		PixelY:  py,
		Columns: grid.Columns,
		Rows:    grid.Rows,
		Derived: derived,
	}
	if size, ok := st.SurfaceSize(); ok {
		resp.Width, resp.Height = size.X, size.Y
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	if st.Surface() == nil && !s.refresh(w, r, st) {
		return
	}
	scale := st.Config().Scale
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || pipeline.ValidateRange("scale", n, pipeline.MaxScale) != nil {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid scale %q", v))
			return
		}
		scale = n
	}

	cell := st.CellImage()
	if cell == nil {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no composite available yet"))
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, compose.Scale(cell, scale)); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Studio
	res, err := st.Export(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	art := res.Artifact
	w.Header().Set("Content-Type", art.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	w.Header().Set("X-Cache", cacheStatus(res.Cached))
	_, _ = w.Write(art.Data)
}

// refresh re-composites after a mutation. It writes the error response and
// reports false on failure.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request, st *studio.Studio) bool {
	if _, err := st.Refresh(r.Context()); err != nil {
		s.writeError(w, err)
		return false
	}
	return true
}

// withDefaults fills zero fields of req from defaults.
func withDefaults(req, defaults pipeline.Options) pipeline.Options {
	out := pipeline.Options{
		Name:       req.Name,
		Format:     req.Format,
		FPS:        req.FPS,
		Scale:      req.Scale,
		CellSize:   req.CellSize,
		Seed:       req.Seed,
		Categories: req.Categories,
	}
	if out.Name == "" {
		out.Name = defaults.Name
	}
	if out.Format == "" {
		out.Format = defaults.Format
	}
	if out.FPS == 0 {
		out.FPS = defaults.FPS
	}
	if out.Scale == 0 {
		out.Scale = defaults.Scale
	}
	if out.CellSize == 0 {
		out.CellSize = defaults.CellSize
	}
	if out.Seed == 0 {
		out.Seed = defaults.Seed
	}
	if len(out.Categories) == 0 {
		out.Categories = defaults.Categories
	}
	return out
}

func layerNames(ls []sprite.Layer) []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
