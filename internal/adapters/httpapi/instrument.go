package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

// RequestRecorder counts served requests. Satisfied by metrics.Recorder.
type RequestRecorder interface {
	RecordRequest(route, status string)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// namedRoutes are the fixed first path segments of the API. Anything else
// is either the wildcard machine listing or an unmatched path; both fold
// into fixed labels so arbitrary request paths cannot mint label values.
var namedRoutes = map[string]struct{}{
	"machines": {},
	"batches":  {},
	"nest":     {},
	"programs": {},
	"feedback": {},
	"healthz":  {},
	"metrics":  {},
}

// Instrument wraps next so every request increments the recorder, labelled
// by the first path segment.
func Instrument(rec RequestRecorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)[0]
		switch {
		case route == "":
			route = "root"
		case isNamedRoute(route):
		case sw.status == http.StatusNotFound:
			route = "unknown"
		default:
			route = "machine"
		}
		rec.RecordRequest(route, strconv.Itoa(sw.status))
	})
}

func isNamedRoute(route string) bool {
	_, ok := namedRoutes[route]
	return ok
}
