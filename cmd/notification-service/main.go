package main

import (
	"log"

	"github.com/prperemyshlev/platform-services/internal/app"
)

func main() {
	if err := app.Serve(app.NotificationServiceName, app.Needs{AWS: true}, app.NewNotificationApp); err != nil {
		log.Fatalf("%s: %v", app.NotificationServiceName, err)
	}
}
