package stream

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/render"
)

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

func testConfig() config.Config {
	c := config.Default()
	c.Width = 64
	c.Height = 48
	c.MaxIterations = 64
	c.PaletteSize = 16
	c.Workers = 2
	return c
}

func TestServer_Healthz(t *testing.T) {
	s := NewServer(testConfig())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_PNG(t *testing.T) {
	s := NewServer(testConfig())

	tcs := []struct {
		name   string
		query  string
		code   int
		bounds image.Rectangle
	}{
		{name: "defaults", query: "", code: http.StatusOK, bounds: image.Rect(0, 0, 64, 48)},
		{name: "sized", query: "width=32&height=16&iter=40&palette=gray", code: http.StatusOK, bounds: image.Rect(0, 0, 32, 16)},
		{name: "view", query: "width=10&height=10&re=-0.5&im=0.5&lw=0.25&smooth=false", code: http.StatusOK, bounds: image.Rect(0, 0, 10, 10)},
		{name: "region", query: "width=20&height=10&region=seahorse-valley", code: http.StatusOK, bounds: image.Rect(0, 0, 20, 10)},
		{name: "bad number", query: "width=abc", code: http.StatusBadRequest},
		{name: "bad bool", query: "smooth=sometimes", code: http.StatusBadRequest},
		{name: "bad iterations", query: "iter=-5", code: http.StatusBadRequest},
		{name: "bad palette", query: "palette=plaid", code: http.StatusBadRequest},
		{name: "bad region", query: "region=atlantis", code: http.StatusBadRequest},
		{name: "too large", query: "width=100000&height=100000", code: http.StatusBadRequest},
		{name: "overflowing size", query: "width=4294967296&height=4294967296", code: http.StatusBadRequest},
		{name: "too many colors", query: "colors=2000000000", code: http.StatusBadRequest},
		{name: "too many iterations", query: "iter=2000000000", code: http.StatusBadRequest},
		{name: "smoothing undefined", query: "radius=0.5&smooth=true", code: http.StatusUnprocessableEntity},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render.png?"+tc.query, nil))

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d; body: %s", tc.code, rec.Code, rec.Body.String())
			}
			if tc.code != http.StatusOK {
				return
			}

			if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Content-Type = %q", ct)
			}
			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds() != tc.bounds {
				t.Errorf("bounds %v, want %v", img.Bounds(), tc.bounds)
			}
		})
	}
}

func dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(NewServer(testConfig()))
	t.Cleanup(srv.Close)

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.CloseNow() })
	c.SetReadLimit(1 << 22)

	return c
}

func send(t *testing.T, ctx context.Context, c *websocket.Conn, req Request) {
	t.Helper()

	b, err := sonic.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Write(ctx, websocket.MessageText, b); err != nil {
		t.Fatal(err)
	}
}

func readMessage(t *testing.T, ctx context.Context, c *websocket.Conn) Message {
	t.Helper()

	typ, data, err := c.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("got %v frame, want text", typ)
	}

	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestServer_Websocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := dial(t, ctx)
	req := Request{Width: 40, Height: 24, MaxIterations: 50, TileSize: 16}
	send(t, ctx, c, req)

	got := image.NewRGBA(image.Rect(0, 0, 40, 24))
	tiles := 0
	for {
		m := readMessage(t, ctx, c)
		if m.Error != "" {
			t.Fatalf("server error: %s", m.Error)
		}
		if m.Done {
			if m.Tiles != tiles {
				t.Errorf("server reported %d tiles, received %d", m.Tiles, tiles)
			}
			break
		}
		if m.Tile == nil {
			t.Fatalf("unexpected message %+v", m)
		}

		typ, data, err := c.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if typ != websocket.MessageBinary {
			t.Fatalf("got %v frame, want binary", typ)
		}
		tileImg, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}

		h := m.Tile
		if tileImg.Bounds().Dx() != h.W || tileImg.Bounds().Dy() != h.H {
			t.Fatalf("tile %+v decoded as %v", h, tileImg.Bounds())
		}
		draw.Draw(got, image.Rect(h.X, h.Y, h.X+h.W, h.Y+h.H), tileImg, image.Point{}, draw.Src)
		tiles++
	}

	// 40x24 in 16px tiles.
	if tiles != 6 {
		t.Fatalf("received %d tiles, want 6", tiles)
	}

	j, err := newJob(req, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	want, err := render.Image(ctx, j.vp, j.p, j.pal, j.opts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Pix, want.Pix) {
		t.Error("streamed tiles differ from the rendered image")
	}
}

func TestServer_WebsocketInvalid(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := dial(t, ctx)
	send(t, ctx, c, Request{MaxIterations: -1})

	m := readMessage(t, ctx, c)
	if m.Error == "" {
		t.Fatalf("got %+v, want an error", m)
	}

	_, _, err := c.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusPolicyViolation {
		t.Errorf("close status %v, want %v", status, websocket.StatusPolicyViolation)
	}
}

func TestRequestFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/render.png?width=3&height=4&re=-1.5&im=0.25&lw=0.5&iter=7&radius=3&smooth=false&clamp=true&palette=fire&colors=9&region=full", nil)

	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		t.Fatal(err)
	}

	if req.Width != 3 || req.Height != 4 || req.CenterReal != -1.5 || req.CenterImag != 0.25 || req.LogicalWidth != 0.5 {
		t.Errorf("view: got %+v", req)
	}
	if req.MaxIterations != 7 || req.EscapeRadius != 3 || req.Palette != "fire" || req.PaletteSize != 9 || req.Region != "full" {
		t.Errorf("params: got %+v", req)
	}
	if req.Smooth == nil || *req.Smooth || req.Clamp == nil || !*req.Clamp {
		t.Errorf("flags: smooth %v, clamp %v", req.Smooth, req.Clamp)
	}
}

func TestNewJob_SharedKey(t *testing.T) {
	smooth := true

	a, err := newJob(Request{Width: 10, Height: 10, Smooth: &smooth}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := newJob(Request{Width: 10, Height: 10}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if a.key != b.key {
		t.Errorf("equivalent requests have different keys:\n%s\n%s", a.key, b.key)
	}

	c, err := newJob(Request{Width: 10, Height: 10, MaxIterations: 65}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if a.key == c.key {
		t.Errorf("different requests share key %s", a.key)
	}
}

func TestNewJob_Limits(t *testing.T) {
	tcs := []struct {
		name string
		req  Request
	}{
		{name: "pixels", req: Request{Width: 8192, Height: 4096}},
		{name: "overflowing pixels", req: Request{Width: 1 << 32, Height: 1 << 32}},
		{name: "iterations", req: Request{MaxIterations: MaxIterations + 1}},
		{name: "palette", req: Request{PaletteSize: MaxPaletteSize + 1}},
		{name: "tile", req: Request{TileSize: MaxTileSize + 1}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newJob(tc.req, testConfig())
			if !errors.Is(err, ErrTooLarge) {
				t.Fatalf("got error %v, want %v", err, ErrTooLarge)
			}
		})
	}

	if _, err := newJob(Request{Width: 4096, Height: 4096, MaxIterations: MaxIterations, PaletteSize: MaxPaletteSize, TileSize: MaxTileSize}, testConfig()); err != nil {
		t.Errorf("request at the limits rejected: %v", err)
	}
}

func TestNewJob_ViewReplacesRegion(t *testing.T) {
	j, err := newJob(Request{Width: 10, Height: 10, Region: "seahorse-valley", CenterReal: -1, LogicalWidth: 0.5}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if j.vp.Center() != complex(-1, 0) || j.vp.LogicalWidth() != 0.5 {
		t.Errorf("got view %v, want center (-1+0i) and width 0.5", j.vp)
	}

	j, err = newJob(Request{Width: 10, Height: 10, Region: "seahorse-valley"}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if j.vp.LogicalWidth() == 0.5 || j.vp.Center() == complex(-0.75, 0) {
		t.Errorf("region ignored: %v", j.vp)
	}
}
