package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"video-transcriber/internal/bootstrap"
	"video-transcriber/internal/httpapi"
)

// newAPIServer wires the desktop app's services behind the HTTP router.
func newAPIServer(opts options) (*http.Server, error) {
	app, err := bootstrap.NewWithSettingsPath(opts.settingsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("bootstrap app: %w", err)
	}

	var origins []string
	for _, o := range strings.Split(opts.origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &http.Server{
		Addr:              opts.serveAddr,
		Handler:           httpapi.NewRouter(app, app.Log, origins),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
