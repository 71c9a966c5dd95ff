package server

import (
	"errors"
	"net/http"

	"careercatalyst/internal/resume"
)

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument     = 1000
	ErrCodeInvalidJSON         = 1001
	ErrCodeRequestTooLarge     = 1002
	ErrCodeInvalidQuery        = 1003
	ErrCodeInvalidID           = 1004
	ErrCodeMissingRequired     = 1005
	ErrCodeInvalidDeadline     = 1006
	ErrCodeInvalidEmail        = 1007
	ErrCodeInvalidPassword     = 1008
	ErrCodeUnsupportedFileType = 1009
	ErrCodeSourceBlobMissing   = 1010
	ErrCodeInvalidInstitution  = 1011
	ErrCodeEmailTaken          = 1012
	ErrCodeInvalidMultipart    = 1013

	// Domain state (2xxx)
	ErrCodeOwnerNotFound  = 2001
	ErrCodeJobNotFound    = 2002
	ErrCodeResumeNotFound = 2003
	ErrCodeAlreadyBound   = 2101
	ErrCodeConflict       = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003
	ErrCodeFileTooLarge      = 3004

	// Internal/system (4xxx)
	ErrCodeInternal             = 4001
	ErrCodeStoreFailure         = 4002
	ErrCodeStorageWriteFailure  = 4003
	ErrCodeStorageInconsistency = 4004
)

// statusDefaults fills in the string and numeric codes for errors that
// carry only a status.
var statusDefaults = map[int]struct {
	code    string
	errCode int
}{
	http.StatusBadRequest:            {"invalid_argument", ErrCodeInvalidArgument},
	http.StatusUnauthorized:          {"unauthorized", ErrCodeUnauthorized},
	http.StatusForbidden:             {"forbidden", ErrCodeForbidden},
	http.StatusNotFound:              {"not_found", ErrCodeOwnerNotFound},
	http.StatusConflict:              {"conflict", ErrCodeConflict},
	http.StatusRequestEntityTooLarge: {"payload_too_large", ErrCodeFileTooLarge},
	http.StatusTooManyRequests:       {"resource_exhausted", ErrCodeResourceExhausted},
	http.StatusInternalServerError:   {"internal", ErrCodeInternal},
}

func defaultErrorCodeByStatus(status int) int {
	return statusDefaults[status].errCode
}

// resumeError maps resume lifecycle failures onto API errors. Unknown
// errors are store failures.
func resumeError(err error) error {
	switch {
	case errors.Is(err, resume.ErrUnauthorized):
		return makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden, err)
	case errors.Is(err, resume.ErrOwnerNotFound):
		return notFoundCode(err, ErrCodeOwnerNotFound)
	case errors.Is(err, resume.ErrUnsupportedFileType):
		return badRequestCode(err, ErrCodeUnsupportedFileType)
	case errors.Is(err, resume.ErrSourceBlobMissing):
		return badRequestCode(err, ErrCodeSourceBlobMissing)
	case errors.Is(err, resume.ErrFileTooLarge):
		return makeAPIError(http.StatusRequestEntityTooLarge, "payload_too_large", ErrCodeFileTooLarge, err)
	case errors.Is(err, resume.ErrAlreadyBound):
		return conflictCode(err, ErrCodeAlreadyBound)
	case errors.Is(err, resume.ErrConcurrentUpdate):
		return conflictCode(err, ErrCodeConflict)
	case errors.Is(err, resume.ErrStorageWriteFailure):
		return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStorageWriteFailure, err)
	case errors.Is(err, resume.ErrStorageInconsistency):
		return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStorageInconsistency, err)
	default:
		return storeFailure(err)
	}
}
