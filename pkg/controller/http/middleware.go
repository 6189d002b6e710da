package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// LoggingMiddleware returns a middleware that logs HTTP requests and puts a
// request scoped logger into the request context
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := ctxlog.From(ctx).With("request_id", middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(ctxlog.With(r.Context(), logger)))
		})
	}
}

// sourceAllowList holds the addresses allowed to deliver webhooks. An empty
// list allows every source.
type sourceAllowList struct {
	prefixes []netip.Prefix
}

func newSourceAllowList(sources []string) (*sourceAllowList, error) {
	list := &sourceAllowList{}
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}

		if strings.Contains(src, "/") {
			prefix, err := netip.ParsePrefix(src)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid allowed source", goerr.V("source", src))
			}
			list.prefixes = append(list.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(src)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid allowed source", goerr.V("source", src))
		}
		list.prefixes = append(list.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return list, nil
}

func (l *sourceAllowList) allows(remoteAddr string) bool {
	if len(l.prefixes) == 0 {
		return true
	}

	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range l.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// sourceFilterMiddleware discards requests whose remote address is not in the allow list
func sourceFilterMiddleware(list *sourceAllowList) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !list.allows(r.RemoteAddr) {
				ctxlog.From(r.Context()).Info("discarding request from disallowed address", "remote_addr", r.RemoteAddr)
				writeStatus(w, r, http.StatusForbidden, StatusRejected, goerr.New("source address not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": StatusFailed,
		"error":  err.Error(),
	}); err != nil {
		// Can't get context here, so use background context
		ctxlog.From(context.Background()).Error("Failed to encode error response", "error", err)
	}
}
