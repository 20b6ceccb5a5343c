package main

import (
	"log"

	"github.com/prperemyshlev/platform-services/internal/app"
)

func main() {
	if err := app.Serve(app.UserServiceName, app.Needs{Storage: true}, app.NewUserApp); err != nil {
		log.Fatalf("%s: %v", app.UserServiceName, err)
	}
}
