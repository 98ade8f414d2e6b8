package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

const sessionCookie = "zipview_session"

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; " +
	"frame-ancestors 'none'; " +
	"base-uri 'self'; " +
	"form-action 'self'"

type ExtractHandler struct {
	store     *SessionStore
	page      *template.Template
	maxupload int64
	headers   map[string]string
	accesslog *slog.Logger
	router    chi.Router
}

type pageData struct {
	View   SessionView
	Accept string
	Error  string
}

func NewExtractHandler(store *SessionStore, maxupload int64, accesslog *slog.Logger) (*ExtractHandler, error) {
	page, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	h := &ExtractHandler{
		store:     store,
		page:      page,
		maxupload: maxupload,
		headers:   make(map[string]string),
		accesslog: accesslog,
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequest)
	r.Use(h.securityHeaders)
	r.With(compressHandler).Get("/", h.index)
	r.With(compressHandler).Get("/api/session", h.apiSession)
	r.Post("/select", h.selectFile)
	r.Post("/cancel", h.cancel)
	r.Post("/extract", h.extract)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	r.Handle("/metrics", metricsHandler())
	h.router = r
	return h, nil
}

func (h *ExtractHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *ExtractHandler) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			RecordRequest(route, status, time.Since(start))
			if h.accesslog == nil {
				return
			}
			headers := []any{
				"remote", r.RemoteAddr, "elapsed", time.Since(start),
				"method", r.Method, "path", r.URL.Path,
				"status", status, "protocol", r.Proto, "length", ww.BytesWritten(),
			}
			for k, v := range w.Header() {
				switch strings.ToLower(k) {
				case "content-type", "content-encoding", "content-disposition", "location":
					headers = append(headers, strings.ToLower(k), v[0])
				}
			}
			for k, v := range r.Header {
				switch strings.ToLower(k) {
				case "x-forwarded-for", "x-forwarded-host", "x-forwarded-proto":
					headers = append(headers, strings.TrimPrefix(strings.ToLower(k), "x-"), v[0])
				case "forwarded", "user-agent", "referer", "accept-encoding":
					headers = append(headers, strings.ToLower(k), v[0])
				}
			}
			h.accesslog.Info(http.StatusText(status), headers...)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *ExtractHandler) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		headers.Set("Content-Security-Policy", contentSecurityPolicy)
		for k, v := range h.headers {
			headers.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the caller's session, creating one and setting the cookie
// when the request carries none or an expired one.
func (h *ExtractHandler) session(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := h.store.Get(c.Value); ok {
			return sess
		}
		slog.Debug("unknown session", "id", c.Value)
	}
	id, sess := h.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (h *ExtractHandler) render(w http.ResponseWriter, status int, view SessionView, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := pageData{
		View:   view,
		Accept: strings.Join(acceptExtensions(acceptPatterns), ","),
		Error:  message,
	}
	if err := h.page.Execute(w, data); err != nil {
		slog.Error("render", "error", err)
	}
}

func (h *ExtractHandler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.session(w, r).Snapshot(), "")
}

func (h *ExtractHandler) apiSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session(w, r).Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode", "error", err)
	}
}

// transitionFailed writes the response for a failed transition.
func (h *ExtractHandler) transitionFailed(w http.ResponseWriter, sess *Session, err error) {
	var pe *ParseError
	switch {
	case errors.As(err, &pe):
		h.render(w, http.StatusBadRequest, sess.Snapshot(), pe.Error())
	case errors.Is(err, ErrInvalidState):
		slog.Error("invalid transition", "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.render(w, http.StatusInternalServerError, sess.Snapshot(), err.Error())
	}
}

func (h *ExtractHandler) selectFile(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if h.maxupload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxupload)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			slog.Info("upload too large", "limit", mbe.Limit)
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		slog.Info("no file in form", "error", err)
		h.render(w, http.StatusBadRequest, sess.Snapshot(), "no file selected")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("read upload", "error", err)
		http.Error(w, "upload failed", http.StatusBadRequest)
		return
	}
	UploadBytes.Observe(float64(len(data)))
	name := filepath.Base(filepath.ToSlash(hdr.Filename))
	if !ismatch(name, acceptPatterns) {
		slog.Warn("unexpected file type", "name", name, "accept", acceptPatterns)
	}
	// archives with one entry or less leave the upload prompt on screen
	if view := sess.Snapshot(); view.Stage == StageListed && !view.ShowList() && view.Pending == "" {
		if err = sess.Cancel(); err != nil {
			slog.Warn("reset prompt", "error", err)
		}
	}
	err = sess.SelectFile(r.Context(), name, data)
	RecordTransition("select", err)
	if err != nil {
		h.transitionFailed(w, sess, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ExtractHandler) cancel(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	err := sess.Cancel()
	RecordTransition("cancel", err)
	if err != nil {
		h.transitionFailed(w, sess, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ExtractHandler) extract(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	saver := &downloadSaver{w: w}
	err := sess.ConfirmExtract(r.Context(), saver)
	RecordTransition("extract", err)
	if err != nil {
		if saver.started {
			slog.Error("download aborted", "error", err)
			return
		}
		h.transitionFailed(w, sess, err)
	}
}

// downloadSaver sends the artifact as an attachment response.
type downloadSaver struct {
	w       http.ResponseWriter
	started bool
}

func (d *downloadSaver) Save(ctx context.Context, name string, data []byte) error {
	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	hdr := d.w.Header()
	hdr.Set("Content-Type", ctype)
	hdr.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	hdr.Set("Content-Length", strconv.Itoa(len(data)))
	hdr.Set("Cache-Control", "no-store")
	d.started = true
	d.w.WriteHeader(http.StatusOK)
	written, err := io.Copy(d.w, contextReader{ctx: ctx, r: bytes.NewReader(data)})
	if err != nil {
		slog.Error("copy error", "error", err, "written", written)
		return err
	}
	slog.Debug("copy success", "written", written)
	return nil
}

func do_listen(listen string) (net.Listener, error) {
	protos := strings.SplitN(listen, ":", 2)
	switch protos[0] {
	case "unix", "tcp", "tcp4", "tcp6":
		return net.Listen(protos[0], protos[1])
	}
	return net.Listen("tcp", listen)
}

type WebServer struct {
	Listen            string        `short:"l" long:"listen" default:":3000" env:"ZIPVIEW_LISTEN" description:"listen address:port"`
	MaxUpload         int64         `long:"max-upload" default:"67108864" env:"ZIPVIEW_MAX_UPLOAD" description:"upload size limit in bytes"`
	SessionTTL        time.Duration `long:"session-ttl" default:"30m" env:"ZIPVIEW_SESSION_TTL" description:"drop sessions idle for this long"`
	MaxSessions       int           `long:"max-sessions" default:"256" env:"ZIPVIEW_MAX_SESSIONS" description:"live session limit, the least recently used is dropped (0: unlimited)"`
	ReadTimeout       time.Duration `long:"read-timeout" default:"60s"`
	ReadHeaderTimeout time.Duration `long:"read-header-timeout" default:"10s"`
	WriteTimeout      time.Duration `long:"write-timeout" default:"60s"`
	IdleTimeout       time.Duration `long:"idle-timeout" default:"10s"`
	Headers           []string      `short:"H" long:"header" description:"custom response headers"`
	OpenTelemetry     bool          `long:"opentelemetry" description:"otel trace setup"`
	server            http.Server
	handler           *ExtractHandler
}

func (cmd *WebServer) setup() error {
	store := NewSessionStore(cmd.SessionTTL, slog.Default())
	store.SetLimit(cmd.MaxSessions)
	handler, err := NewExtractHandler(store, cmd.MaxUpload, slog.With("type", "accesslog"))
	if err != nil {
		slog.Error("template", "error", err)
		return err
	}
	for _, hdr := range cmd.Headers {
		if kv := strings.SplitN(hdr, ":", 2); len(kv) != 2 {
			slog.Error("invalid header spec", "header", hdr)
			return fmt.Errorf("invalid header: %s", hdr)
		} else {
			handler.headers[kv[0]] = strings.TrimSpace(kv[1])
		}
	}
	cmd.handler = handler
	cmd.server = http.Server{
		Handler:           handler,
		ReadTimeout:       cmd.ReadTimeout,
		ReadHeaderTimeout: cmd.ReadHeaderTimeout,
		WriteTimeout:      cmd.WriteTimeout,
		IdleTimeout:       cmd.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo),
	}
	return nil
}

func (cmd *WebServer) Execute(args []string) (err error) {
	init_log()
	if err = cmd.setup(); err != nil {
		return err
	}
	if cmd.OpenTelemetry {
		stop, handler, err := cmd.init_otel(cmd.handler, "zipview")
		if err != nil {
			slog.Warn("opentelemetry initialize failed", "error", err)
		} else {
			defer stop()
			cmd.server.Handler = handler
		}
	}

	done := make(chan struct{})
	defer close(done)
	if cmd.SessionTTL > 0 {
		go func() {
			ticker := time.NewTicker(cmd.SessionTTL / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					cmd.handler.store.Expire()
				case <-done:
					return
				}
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case sig := <-sigs:
				slog.Info("caught signal", "signal", sig)
				switch sig {
				case syscall.SIGHUP:
					slog.Info("expire sessions", "removed", cmd.handler.store.Expire(), "remain", cmd.handler.store.Len())
				case syscall.SIGINT, syscall.SIGTERM:
					if err := cmd.Shutdown(); err != nil {
						slog.Error("terminate failed", "error", err)
					}
					return
				}
			case <-done:
				return
			}
		}
	}()

	listener, err := do_listen(cmd.Listen)
	if err != nil {
		slog.Error("listen error", "error", err)
		return err
	}
	slog.Info("server starting", "listen", listener.Addr(), "pid", os.Getpid(), "max-upload", cmd.MaxUpload)
	err = cmd.server.Serve(listener)
	if err != nil && err != http.ErrServerClosed {
		slog.Error("listen error", "error", err)
		return err
	}
	slog.Info("server closed", "msg", err)
	return nil
}

func (cmd *WebServer) Shutdown() error {
	slog.Info("graceful shutdown")
	return cmd.server.Shutdown(context.TODO())
}
