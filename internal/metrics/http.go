package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Middleware instrumenta requests HTTP (contadores, latencia, inflight).
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)

		m.httpInflight.WithLabelValues(method, pathLabel).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			m.httpInflight.WithLabelValues(method, pathLabel).Dec()
			m.httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	hexSegmentRE   = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// normalizePath reemplaza los segmentos dinámicos (ids de usuario del
// provider, uuids, tokens) por ":param" para acotar la cardinalidad.
func normalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	if clean == "" {
		return "/"
	}

	var out []string
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			out = append(out, ":param")
		} else {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 {
		return true
	}
	if uuidSegmentRE.MatchString(seg) || hexSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
