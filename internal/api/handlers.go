package api

import (
	"net/http"

	"github.com/novostroy/novostroy-api/internal/ratelimit"
)

func (api *Api) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (api *Api) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgNotFound, nil)
}

func (api *Api) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, nil)
}

func (api *Api) tooManyRequests(w http.ResponseWriter, r *http.Request, res ratelimit.Result) {
	api.log.Warn("request throttled", "path", r.URL.Path, "ip", api.clientIP(r), "reset_at", res.ResetAt)
	writeError(w, http.StatusTooManyRequests, msgTooManyRequests, general(msgTooManyRequestsWait))
}
