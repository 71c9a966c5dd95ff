package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"careercatalyst/internal/api"
)

const (
	defaultJSONMaxBody = 1 << 20 // 1 MiB
	// multipartOverhead is allowed on top of the resume size limit for the
	// other form fields and part headers.
	multipartOverhead = 1 << 20
	defaultListLimit  = 200
)

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	numericCode := errorNumericCode(status, err)
	message := err.Error()

	fields := []any{"status", status, "code", code, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
		message = "internal error"
	case status >= 400 && shouldWarnClientError(status):
		s.log().Warn("request rejected", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: code, ErrorCode: numericCode})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

type apiError struct {
	status  int
	code    string
	errCode int
	err     error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func badRequest(err error) error {
	return badRequestCode(err, ErrCodeInvalidArgument)
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func notFoundCode(err error, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, err)
}

func conflictCode(err error, code int) error {
	return makeAPIError(http.StatusConflict, "conflict", code, err)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err)
}

func forbidden(err error) error {
	return makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden, err)
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

func storeFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStoreFailure, err)
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	return statusDefaults[status].code
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}

func shouldWarnClientError(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(defaultJSONMaxBody))
	return json.NewDecoder(r.Body).Decode(dst)
}

func classifyDecodeJSONError(err error) error {
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return badRequestCode(fmt.Errorf("invalid JSON payload"), ErrCodeInvalidJSON)
	}

	return badRequestCode(err, ErrCodeInvalidJSON)
}

func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
}

func (s *Server) writeResumeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeServiceError(w, r, resumeError(err))
}

func (s *Server) pathIDOrBadRequest(w http.ResponseWriter, r *http.Request, valid func(string) bool) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !valid(id) {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID))
		return "", false
	}
	return id, true
}

func queryLimit(r *http.Request) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get("limit"))
	if value == "" {
		return defaultListLimit, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, badRequestCode(fmt.Errorf("invalid limit"), ErrCodeInvalidQuery)
	}
	if parsed <= 0 || parsed > defaultListLimit {
		return 0, badRequestCode(fmt.Errorf("limit must be between 1 and %d", defaultListLimit), ErrCodeInvalidQuery)
	}
	return parsed, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, badRequestCode(fmt.Errorf("invalid %s", key), ErrCodeInvalidQuery)
	}
	return parsed, nil
}

func queryDuration(r *http.Request, key string, def time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return 0, badRequestCode(fmt.Errorf("invalid %s", key), ErrCodeInvalidQuery)
	}
	return parsed, nil
}

func parseFlexibleTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", value)
	if err == nil {
		return t, nil
	}
	return time.Time{}, badRequestCode(fmt.Errorf("expected RFC3339 or YYYY-MM-DD format"), ErrCodeInvalidDeadline)
}
