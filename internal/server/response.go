package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/koustreak/pdo/internal/logger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string             `json:"error"`
	Kind      string             `json:"kind"`
	Code      database.Code      `json:"code"`
	ErrorInfo database.ErrorInfo `json:"error_info"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)

	body := errorBody{Error: err.Error(), Kind: kind.String()}
	var dbErr *database.DBError
	if errors.As(err, &dbErr) {
		body.Code = dbErr.Code()
		body.ErrorInfo = dbErr.ErrorInfo()
	}

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.DBError("request failed", err)
	} else {
		log.Debugf("request rejected: %v", err)
	}

	writeJSON(w, status, body)
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConflict:
		return http.StatusConflict
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
