package main

import (
	"careercatalyst/internal/api"
	"careercatalyst/internal/config"
)

// newClient talks to the server at api_url. Session and admin tokens come
// from CAREERCATALYST_TOKEN and CAREERCATALYST_ADMIN_TOKEN.
func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.APIURL)
}
