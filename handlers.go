package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/kwv/tilemesh/mesh"
	"go.uber.org/zap"
)

// newCompositeRenderer applies the configured palette and cell size
func newCompositeRenderer(sol *mesh.Solution, config *mesh.Config) (*mesh.CompositeRenderer, error) {
	r := mesh.NewCompositeRenderer(sol.Search, &sol.Result)
	if config == nil {
		return r, nil
	}
	palette, err := mesh.PaletteFromConfig(config.Render)
	if err != nil {
		return nil, err
	}
	r.Palette = palette
	if config.Render.CellSize > 0 {
		r.CellSize = config.Render.CellSize
	}
	return r, nil
}

// newLayoutRenderer applies the configured palette and tile grid setting
func newLayoutRenderer(sol *mesh.Solution, config *mesh.Config) (*mesh.LayoutRenderer, error) {
	r := mesh.NewLayoutRenderer(sol.Assembled)
	if config == nil {
		return r, nil
	}
	palette, err := mesh.PaletteFromConfig(config.Render)
	if err != nil {
		return nil, err
	}
	r.Palette = palette
	r.Outlines = config.Render.ShowTileGrid
	return r, nil
}

// latestSolution writes a 503 and returns nil until the first solve succeeds
func latestSolution(w http.ResponseWriter, tracker *mesh.ResultTracker) *mesh.Solution {
	sol := tracker.Latest()
	if sol == nil {
		http.Error(w, "No result available", http.StatusServiceUnavailable)
	}
	return sol
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encoding JSON response", zap.Error(err))
	}
}

// newHTTPServer creates an HTTP handler with all endpoints
func newHTTPServer(tracker *mesh.ResultTracker, config *mesh.Config, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("health request", zap.String("remote", r.RemoteAddr))
		status := struct {
			Status      string            `json:"status"`
			Timestamp   time.Time         `json:"timestamp"`
			HasResult   bool              `json:"hasResult"`
			Subscribers int               `json:"subscribers"`
			Errors      map[string]string `json:"errors,omitempty"`
		}{
			Status:      "ok",
			Timestamp:   time.Now(),
			HasResult:   tracker.HasResult(),
			Subscribers: tracker.SubscriberCount(),
			Errors:      tracker.Errors(),
		}
		writeJSON(w, logger, status)
	})

	mux.HandleFunc("/result.json", func(w http.ResponseWriter, r *http.Request) {
		if sol := latestSolution(w, tracker); sol != nil {
			writeJSON(w, logger, sol.Result)
		}
	})

	mux.HandleFunc("/history.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, tracker.History())
	})

	mux.HandleFunc("/composite.png", func(w http.ResponseWriter, r *http.Request) {
		sol := latestSolution(w, tracker)
		if sol == nil {
			return
		}
		renderer, err := newCompositeRenderer(sol, config)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.WritePNG(w); err != nil {
			logger.Warn("encoding composite PNG", zap.Error(err))
		}
	})

	layout := func(contentType string, render func(*mesh.LayoutRenderer, http.ResponseWriter) error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sol := latestSolution(w, tracker)
			if sol == nil {
				return
			}
			renderer, err := newLayoutRenderer(sol, config)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("Cache-Control", "no-cache")
			if err := render(renderer, w); err != nil {
				logger.Warn("rendering layout", zap.String("path", r.URL.Path), zap.Error(err))
			}
		}
	}
	mux.HandleFunc("/layout.svg", layout("image/svg+xml", func(lr *mesh.LayoutRenderer, w http.ResponseWriter) error {
		return lr.RenderToSVG(w)
	}))
	mux.HandleFunc("/layout.png", layout("image/png", func(lr *mesh.LayoutRenderer, w http.ResponseWriter) error {
		return lr.RenderToPNG(w)
	}))

	mux.HandleFunc("/layout.geojson", func(w http.ResponseWriter, r *http.Request) {
		sol := latestSolution(w, tracker)
		if sol == nil {
			return
		}
		data, err := mesh.MarshalLayoutGeoJSON(sol.Assembled, &sol.Search)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	})

	// Streams the latest result on connect, then every new one
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			logger.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		updates, cancel := tracker.Subscribe()
		defer cancel()

		ctx := conn.CloseRead(r.Context())
		if latest, ok := tracker.LatestResult(); ok {
			if err := writeResult(ctx, conn, latest); err != nil {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			case result, ok := <-updates:
				if !ok {
					return
				}
				if err := writeResult(ctx, conn, result); err != nil {
					logger.Debug("websocket write failed", zap.Error(err))
					return
				}
			}
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexPage))
	})

	return mux
}

func writeResult(ctx context.Context, conn *websocket.Conn, result mesh.Result) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, result)
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>tilemesh</title>
<style>
body { font-family: monospace; margin: 2em; background: #f0f0f0; }
img { image-rendering: pixelated; border: 1px solid #888; margin-right: 1em; }
</style>
</head>
<body>
<h1>tilemesh</h1>
<pre id="result">waiting for a result...</pre>
<img id="composite" alt="composite">
<img id="layout" alt="layout" width="400">
<script>
function show(result) {
  document.getElementById("result").textContent = JSON.stringify(result, null, 2);
  const stamp = "?run=" + result.runId;
  document.getElementById("composite").src = "/composite.png" + stamp;
  document.getElementById("layout").src = "/layout.svg" + stamp;
}
const proto = location.protocol === "https:" ? "wss://" : "ws://";
const ws = new WebSocket(proto + location.host + "/ws");
ws.onmessage = (ev) => show(JSON.parse(ev.data));
</script>
</body>
</html>
`
