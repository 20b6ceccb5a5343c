package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prperemyshlev/platform-services/internal/events"
	"github.com/prperemyshlev/platform-services/internal/functions"
)

func main() {
	rt, err := functions.NewRuntime(context.Background(), "event-handler")
	if err != nil {
		log.Fatalf("event-handler: %v", err)
	}
	defer rt.Close()

	deps := events.Deps{
		Notifier: rt.Notifier(),
		Logger:   rt.Logger,
	}
	if rt.Repos != nil {
		deps.UserResolver = rt.Repos.User
	}

	dispatcher := events.NewDispatcher(
		events.NewDefaultRegistry(deps),
		rt.Logger,
		events.WithConcurrency(rt.Config.Events.Concurrency),
	)

	lambda.Start(dispatcher.HandleSQS)
}
