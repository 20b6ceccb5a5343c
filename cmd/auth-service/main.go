package main

import (
	"log"

	"github.com/prperemyshlev/platform-services/internal/app"
)

func main() {
	needs := app.Needs{Storage: true, RateLimit: true}
	if err := app.Serve(app.AuthServiceName, needs, app.NewAuthApp); err != nil {
		log.Fatalf("%s: %v", app.AuthServiceName, err)
	}
}
