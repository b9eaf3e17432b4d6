// Command app starts the desktop shell serving ./frontend from disk.
package main

import (
	"flag"
	"log"

	"video-transcriber/internal/bootstrap"
	"video-transcriber/internal/config"
)

func main() {
	settingsPath := flag.String("settings", config.SettingsPath(), "settings file path")
	flag.Parse()

	app, err := bootstrap.NewWithSettingsPath(*settingsPath, nil)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
