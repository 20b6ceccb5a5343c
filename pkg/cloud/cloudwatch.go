package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prperemyshlev/platform-services/internal/ports"
)

// CloudWatchAPI is the subset of *cloudwatch.Client used by Metrics
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// Metrics records job metrics and reads cluster statistics
type Metrics struct {
	client      CloudWatchAPI
	namespace   string
	environment string
}

var (
	_ ports.JobMetrics  = (*Metrics)(nil)
	_ ports.StatsReader = (*Metrics)(nil)
)

// NewMetrics creates a CloudWatch adapter publishing into namespace
func NewMetrics(client CloudWatchAPI, namespace, environment string) *Metrics {
	return &Metrics{client: client, namespace: namespace, environment: environment}
}

// RecordJob puts a JobExecution count and a JobDuration sample
func (m *Metrics) RecordJob(ctx context.Context, jobType string, status ports.JobStatus, duration time.Duration) error {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("JobExecution"),
				Dimensions: []types.Dimension{
					dimension("JobType", jobType),
					dimension("Environment", m.environment),
					dimension("Status", string(status)),
				},
				Value: aws.Float64(1),
				Unit:  types.StandardUnitCount,
			},
			{
				MetricName: aws.String("JobDuration"),
				Dimensions: []types.Dimension{
					dimension("JobType", jobType),
					dimension("Environment", m.environment),
				},
				Value: aws.Float64(duration.Seconds()),
				Unit:  types.StandardUnitSeconds,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put job metric: %w", err)
	}
	return nil
}

// ClusterCPU returns the ECS CPU utilization average and maximum over [start, end]
func (m *Metrics) ClusterCPU(ctx context.Context, cluster string, start, end time.Time) (*ports.CPUStats, error) {
	period := int32(end.Sub(start).Seconds())
	if period < 60 {
		period = 60
	}

	out, err := m.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/ECS"),
		MetricName: aws.String("CPUUtilization"),
		Dimensions: []types.Dimension{dimension("ClusterName", cluster)},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(period),
		Statistics: []types.Statistic{types.StatisticAverage, types.StatisticMaximum},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster statistics: %w", err)
	}

	if len(out.Datapoints) == 0 {
		return nil, nil
	}

	dp := out.Datapoints[0]
	return &ports.CPUStats{
		Average: aws.ToFloat64(dp.Average),
		Maximum: aws.ToFloat64(dp.Maximum),
	}, nil
}

func dimension(name, value string) types.Dimension {
	return types.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
