package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prperemyshlev/platform-services/internal/functions"
	"github.com/prperemyshlev/platform-services/internal/imaging"
	"github.com/prperemyshlev/platform-services/pkg/cloud"
)

func main() {
	rt, err := functions.NewRuntime(context.Background(), "image-processor")
	if err != nil {
		log.Fatalf("image-processor: %v", err)
	}
	defer rt.Close()

	processor := imaging.NewProcessor(
		cloud.NewObjectStore(rt.AWS.S3),
		imaging.Settings{
			ThumbnailPrefix: rt.Config.Images.ThumbnailPrefix,
			ProcessedPrefix: rt.Config.Images.ProcessedPrefix,
		},
		rt.Logger,
	)

	lambda.Start(processor.Handle)
}
