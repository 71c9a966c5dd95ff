package main

import (
	"context"
	"errors"
	"net"
	"slices"

	"careercatalyst/internal/api"
)

// formatCLIError renders err plus hints for the failures users hit most.
func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: set CAREERCATALYST_TOKEN to a valid session token.")
		case "forbidden":
			lines = append(lines, "hint: admin commands need CAREERCATALYST_ADMIN_TOKEN matching the server.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly; the server limits concurrent uploads and failed logins.")
		case "":
			lines = append(lines, "hint: verify CAREERCATALYST_API_URL points to a careercatalyst server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
	case errors.Is(err, context.DeadlineExceeded):
		lines = append(lines, "hint: request timed out; check server health or increase CAREERCATALYST_HTTP_TIMEOUT.")
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			lines = append(lines,
				"hint: ensure a careercatalyst server is running at CAREERCATALYST_API_URL.",
				"hint: start one with: careercatalyst srv",
			)
		}
	}

	return slices.Compact(lines)
}
