package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prperemyshlev/platform-services/internal/functions"
	"github.com/prperemyshlev/platform-services/internal/jobs"
	"github.com/prperemyshlev/platform-services/pkg/cloud"
)

func main() {
	rt, err := functions.NewRuntime(context.Background(), "scheduled-jobs")
	if err != nil {
		log.Fatalf("scheduled-jobs: %v", err)
	}
	defer rt.Close()

	cfg := rt.Config
	targets, err := cfg.Jobs.HealthTargets()
	if err != nil {
		log.Fatalf("scheduled-jobs: %v", err)
	}

	metrics := cloud.NewMetrics(rt.AWS.CloudWatch, cfg.Jobs.MetricsNamespace, cfg.Env)
	deps := jobs.Deps{
		Metrics:  metrics,
		Sessions: cloud.NewSessionStore(rt.AWS.DynamoDB, cfg.Jobs.SessionsTable),
		Stats:    metrics,
		Notifier: rt.Notifier(),
		Prober:   jobs.NewHTTPProber(cfg.Jobs.HealthCheckRetries),
	}
	if rt.Repos != nil {
		deps.Tokens = rt.Repos.Token
	}

	runner := jobs.NewRunner(deps, jobs.Settings{
		Environment:  cfg.Env,
		Cluster:      cfg.Jobs.ECSCluster,
		CleanupLimit: cfg.Jobs.CleanupLimit,
		Targets:      targets,
		CheckTimeout: cfg.Jobs.HealthCheckTimeout.Duration,
	}, rt.Logger)

	lambda.Start(runner.Run)
}
