package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/spritestack/pkg/cache"
	"github.com/matzehuels/spritestack/pkg/compose"
	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/pipeline"
)

func pngData(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(cache.NewMemoryCache(time.Minute, time.Minute), nil, nil, nil)
	}
	return &testServer{t: t, srv: New(cfg)}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			ts.t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(id, category string, files map[string][]byte) *httptest.ResponseRecorder {
	ts.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("category", category)
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			ts.t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/layers", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createSession(body any) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/sessions", body)
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("create session: %d %s", rec.Code, rec.Body)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		ts.t.Fatal(err)
	}
	ts.t.Cleanup(func() { ts.do(http.MethodDelete, "/sessions/"+resp.ID, nil) })
	return resp.ID
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Config{})
	rec := ts.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body)
	}
	body := decodeBody[map[string]any](t, rec)
	if _, ok := body["build"].(map[string]any)["version"]; !ok {
		t.Errorf("healthz should report the build version: %s", rec.Body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, Config{Defaults: pipeline.Options{CellSize: 16}})
	rec := ts.do(http.MethodPost, "/sessions", map[string]any{"name": "knight", "fps": 8})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	resp := decodeBody[sessionResponse](t, rec)
	if resp.Config.Name != "knight" || resp.Config.FPS != 8 || resp.Config.CellSize != 16 {
		t.Errorf("config = %+v", resp.Config)
	}
	if len(resp.Categories) != 8 {
		t.Errorf("categories = %v", resp.Categories)
	}

	if rec := ts.do(http.MethodDelete, "/sessions/"+resp.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	rec = ts.do(http.MethodGet, "/sessions/"+resp.ID+"/layers", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("after delete = %d", rec.Code)
	}
	if body := decodeBody[errorBody](t, rec); body.Code != errors.ErrCodeSessionNotFound {
		t.Errorf("error code = %s", body.Code)
	}
}

func TestCreateSessionInvalid(t *testing.T) {
	ts := newTestServer(t, Config{})
	tests := []struct {
		name string
		body any
		code errors.Code
	}{
		{"bad format", map[string]any{"format": "gif"}, errors.ErrCodeInvalidFormat},
		{"bad fps", map[string]any{"fps": -2}, errors.ErrCodeInvalidConfig},
		{"unknown field", map[string]any{"colour": "red"}, errors.ErrCodeInvalidInput},
		{"not json", []byte("{"), errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/sessions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rec.Code)
			}
			if body := decodeBody[errorBody](t, rec); body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, Config{})
	for _, id := range []string{"nope", "6f1c1d5e-3b1a-4a5e-9a53-2f1e3c6a7b8d"} {
		rec := ts.do(http.MethodGet, "/sessions/"+id+"/frame", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d", id, rec.Code)
		}
	}
}

func TestUploadListAndMove(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createSession(nil)

	rec := ts.upload(id, "base", map[string][]byte{"body.png": pngData(t, 40, 20, color.NRGBA{R: 255, A: 255})})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d %s", rec.Code, rec.Body)
	}
	rec = ts.upload(id, "hats", map[string][]byte{"body.png": pngData(t, 40, 20, color.NRGBA{B: 255, A: 255})})
	added := decodeBody[[]compose.LayerInfo](t, rec)
	if len(added) != 1 || added[0].Name != "body (2).png" {
		t.Errorf("duplicate upload = %+v", added)
	}

	rec = ts.upload(id, "capes", map[string][]byte{"x.png": pngData(t, 1, 1, color.NRGBA{})})
	if rec.Code != http.StatusBadRequest || decodeBody[errorBody](t, rec).Code != errors.ErrCodeInvalidCategory {
		t.Errorf("bad category = %d %s", rec.Code, rec.Body)
	}

	layers := decodeBody[[]compose.LayerInfo](t, ts.do(http.MethodGet, "/sessions/"+id+"/layers", nil))
	if len(layers) != 2 || !strings.HasPrefix(layers[0].Swatch, "#") || layers[1].Category != "hats" {
		t.Errorf("layers = %+v", layers)
	}

	rec = ts.do(http.MethodPost, "/sessions/"+id+"/layers/move", moveRequest{From: 1, To: 0})
	moved := decodeBody[map[string]any](t, rec)
	if moved["moved"] != true {
		t.Errorf("move = %v", moved)
	}
	rec = ts.do(http.MethodPost, "/sessions/"+id+"/layers/move", moveRequest{From: 0, To: 5})
	if rec.Code != http.StatusOK || decodeBody[map[string]any](t, rec)["moved"] != false {
		t.Errorf("out-of-range move should be a silent no-op: %d %s", rec.Code, rec.Body)
	}
	layers = decodeBody[[]compose.LayerInfo](t, ts.do(http.MethodGet, "/sessions/"+id+"/layers", nil))
	if layers[0].Name != "body (2).png" {
		t.Errorf("order after move = %s, %s", layers[0].Name, layers[1].Name)
	}
}

func TestVisibilityAndRandomize(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createSession(map[string]any{"seed": 5})
	ts.upload(id, "base", map[string][]byte{
		"a.png": pngData(t, 2, 2, color.NRGBA{R: 255, A: 255}),
		"b.png": pngData(t, 2, 2, color.NRGBA{G: 255, A: 255}),
	})

	rec := ts.do(http.MethodPut, "/sessions/"+id+"/layers/a.png/visibility", map[string]any{"show": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("visibility = %d %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodPut, "/sessions/"+id+"/layers/zzz.png/visibility", map[string]any{"show": false})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing layer = %d", rec.Code)
	}
	rec = ts.do(http.MethodPut, "/sessions/"+id+"/layers/a.png/visibility", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing show = %d", rec.Code)
	}

	for i := 0; i < 20; i++ {
		rec = ts.do(http.MethodPost, "/sessions/"+id+"/randomize", nil)
		var layers []struct {
			Name string `json:"name"`
			Show bool   `json:"show"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &layers); err != nil {
			t.Fatal(err)
		}
		shown := 0
		for _, l := range layers {
			if l.Show {
				shown++
			}
		}
		if shown != 1 {
			t.Fatalf("randomize showed %d base layers", shown)
		}
	}
}

func TestConfigFrameAndPreview(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createSession(map[string]any{"cell_size": 2, "scale": 2})
	ts.upload(id, "base", map[string][]byte{"walk.png": pngData(t, 6, 4, color.NRGBA{R: 255, A: 255})})

	frame := decodeBody[frameResponse](t, ts.do(http.MethodGet, "/sessions/"+id+"/frame", nil))
	if !frame.Derived || frame.Columns != 3 || frame.Rows != 2 || frame.Length != 10 {
		t.Errorf("frame = %+v", frame)
	}
	if frame.Width != 6 || frame.Height != 4 {
		t.Errorf("surface = %dx%d", frame.Width, frame.Height)
	}
	if frame.PixelX != frame.Frame.X*2 {
		t.Errorf("pixel offset = %d for %v", frame.PixelX, frame.Frame)
	}

	rec := ts.do(http.MethodGet, "/sessions/"+id+"/preview.png", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview = %d %s", rec.Code, rec.Header())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Size() != image.Pt(4, 4) {
		t.Errorf("preview size = %v, want cell 2 x scale 2", img.Bounds().Size())
	}
	if rec := ts.do(http.MethodGet, "/sessions/"+id+"/preview.png?scale=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("scale=0 = %d", rec.Code)
	}

	rec = ts.do(http.MethodPut, "/sessions/"+id+"/config", map[string]any{"cell_size": 3, "fps": 10})
	cfg := decodeBody[pipeline.Options](t, rec)
	if cfg.CellSize != 3 || cfg.FPS != 10 || cfg.Scale != 2 {
		t.Errorf("config = %+v", cfg)
	}
	frame = decodeBody[frameResponse](t, ts.do(http.MethodGet, "/sessions/"+id+"/frame", nil))
	if frame.Columns != 2 || frame.Rows != 1 {
		t.Errorf("grid after cell change = %dx%d", frame.Columns, frame.Rows)
	}

	rec = ts.do(http.MethodPut, "/sessions/"+id+"/config", map[string]any{"scale": 500})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad config = %d", rec.Code)
	}
	if got := decodeBody[pipeline.Options](t, ts.do(http.MethodGet, "/sessions/"+id+"/config", nil)); got.Scale != 2 {
		t.Errorf("config after rejected update = %+v", got)
	}
}

func TestConfigRejectsFixedFields(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createSession(map[string]any{"seed": 5})

	for _, body := range []map[string]any{
		{"seed": 9},
		{"randomize": true},
		{"categories": []map[string]any{{"name": "capes"}}},
		{"fps": 12, "refresh": true},
	} {
		rec := ts.do(http.MethodPut, "/sessions/"+id+"/config", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("PUT config %v = %d, want 400", body, rec.Code)
			continue
		}
		if code := decodeBody[errorBody](t, rec).Code; code != errors.ErrCodeInvalidInput {
			t.Errorf("PUT config %v code = %s", body, code)
		}
	}
	if got := decodeBody[pipeline.Options](t, ts.do(http.MethodGet, "/sessions/"+id+"/config", nil)); got.FPS == 12 {
		t.Error("a rejected update must not be partially applied")
	}

	if rec := ts.do(http.MethodPost, "/sessions", map[string]any{"randomize": true}); rec.Code != http.StatusBadRequest {
		t.Errorf("create with randomize = %d, want 400", rec.Code)
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createSession(map[string]any{"name": "knight"})
	ts.upload(id, "base", map[string][]byte{"body.png": pngData(t, 5, 5, color.NRGBA{G: 255, A: 255})})

	rec := ts.do(http.MethodGet, "/sessions/"+id+"/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="knight.png"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first export X-Cache = %q", rec.Header().Get("X-Cache"))
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("export is not a PNG: %v", err)
	}

	rec = ts.do(http.MethodGet, "/sessions/"+id+"/export", nil)
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second export X-Cache = %q", rec.Header().Get("X-Cache"))
	}

	ts.do(http.MethodPut, "/sessions/"+id+"/config", map[string]any{"format": "bmp", "name": "mage"})
	rec = ts.do(http.MethodGet, "/sessions/"+id+"/export", nil)
	if rec.Header().Get("Content-Type") != "image/bmp" || !strings.Contains(rec.Header().Get("Content-Disposition"), "mage.bmp") {
		t.Errorf("bmp export headers = %v", rec.Header())
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Config{Rate: 1, Burst: 2})
	codes := make([]int, 4)
	for i := range codes {
		codes[i] = ts.do(http.MethodGet, "/healthz", nil).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests = %v", codes)
	}
	rec := ts.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if decodeBody[errorBody](t, rec).Code != errors.ErrCodeRateLimited {
		t.Errorf("body = %s", rec.Body)
	}
}
