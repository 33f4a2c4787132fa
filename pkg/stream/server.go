// Package stream serves renderings over HTTP, either as a single PNG or as
// tiles streamed over a websocket while they are computed.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"
	"golang.org/x/sync/errgroup"

	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/render"
)

// Server renders requests against a base configuration. Concurrent requests
// for the same image or tile share a single rendering.
type Server struct {
	defaults config.Config
	flight   syncx.SingleFlight
	mux      *http.ServeMux

	// OriginPatterns are the websocket origins accepted besides the
	// server's own host.
	OriginPatterns []string
}

func NewServer(defaults config.Config) *Server {
	s := &Server{
		defaults: defaults,
		flight:   syncx.NewSingleFlight(),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.mux.HandleFunc("GET /render.png", s.handlePNG)
	s.mux.HandleFunc("GET /ws", s.handleWebsocket)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	j, err := newJob(req, s.defaults)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := s.flight.Do(j.key, func() (any, error) {
		// Detached from ctx so one client going away does not fail the
		// others waiting on the same key.
		img, err := render.Image(context.WithoutCancel(ctx), j.vp, j.p, j.pal, j.opts)
		if err != nil {
			return nil, err
		}
		return encodePNG(img)
	})
	if err != nil {
		logx.WithContext(ctx).Errorf("render %s: %v", j.key, err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	b := v.([]byte)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprint(len(b)))
	if _, err := w.Write(b); err != nil {
		logx.WithContext(ctx).Errorf("writing png: %v", err)
		return
	}

	logx.WithContext(ctx).WithDuration(time.Since(start)).Infof("rendered %s", j.vp)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		logx.WithContext(r.Context()).Errorf("websocket accept: %v", err)
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	start := time.Now()

	j, err := s.readJob(ctx, c)
	if err != nil {
		_ = writeMessage(ctx, c, Message{Error: err.Error()})
		_ = c.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	n, err := s.streamTiles(ctx, c, j)
	if err != nil {
		logx.WithContext(ctx).Errorf("streaming %s: %v", j.key, err)
		_ = writeMessage(ctx, c, Message{Error: err.Error()})
		_ = c.Close(websocket.StatusInternalError, "render failed")
		return
	}

	if err := writeMessage(ctx, c, Message{Done: true, Tiles: n}); err != nil {
		return
	}
	_ = c.Close(websocket.StatusNormalClosure, "")

	logx.WithContext(ctx).WithDuration(time.Since(start)).Infof("streamed %d tiles of %s", n, j.vp)
}

func (s *Server) readJob(ctx context.Context, c *websocket.Conn) (job, error) {
	typ, data, err := c.Read(ctx)
	if err != nil {
		return job{}, err
	}
	if typ != websocket.MessageText {
		return job{}, errors.New("request must be a text message")
	}

	var req Request
	if err := sonic.Unmarshal(data, &req); err != nil {
		return job{}, fmt.Errorf("decoding request: %w", err)
	}

	return newJob(req, s.defaults)
}

// streamTiles renders the tiles of j concurrently and sends each, as a
// header followed by the PNG, in completion order.
func (s *Server) streamTiles(ctx context.Context, c *websocket.Conn, j job) (int, error) {
	var (
		mu   sync.Mutex
		sent int
	)

	g, ctx := errgroup.WithContext(ctx)
	workers := j.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)

	for _, tile := range j.tiles() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			b, err := s.tilePNG(ctx, j, tile)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			header := &TileHeader{X: tile.Min.X, Y: tile.Min.Y, W: tile.Dx(), H: tile.Dy()}
			if err := writeMessage(ctx, c, Message{Tile: header}); err != nil {
				return err
			}
			if err := c.Write(ctx, websocket.MessageBinary, b); err != nil {
				return err
			}
			sent++
			return nil
		})
	}

	err := g.Wait()
	return sent, err
}

func (s *Server) tilePNG(ctx context.Context, j job, tile image.Rectangle) ([]byte, error) {
	key := fmt.Sprintf("%s|%v", j.key, tile)

	v, err := s.flight.Do(key, func() (any, error) {
		img, err := render.Tile(context.WithoutCancel(ctx), j.vp, j.p, j.pal, j.opts, tile)
		if err != nil {
			return nil, err
		}
		return encodePNG(img)
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

func writeMessage(ctx context.Context, c *websocket.Conn, m Message) error {
	b, err := sonic.Marshal(m)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, b)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
