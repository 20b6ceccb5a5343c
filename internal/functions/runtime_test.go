package functions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAWSEnv(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ENDPOINT_URL", "http://localhost:4566")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
}

func TestNewRuntimeWithoutUserStore(t *testing.T) {
	setAWSEnv(t)
	t.Setenv("AWS_SNS_TOPIC_ARN", "arn:aws:sns:eu-west-1:000000000000:platform")

	rt, err := NewRuntime(context.Background(), "event-handler")
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	assert.Nil(t, rt.Repos)
	assert.NotNil(t, rt.AWS.SNS)
	assert.NotNil(t, rt.AWS.S3)
	assert.NotNil(t, rt.Notifier())
	assert.Equal(t, "eu-west-1", rt.Config.AWS.Region)
}

func TestRuntimeNotifierWithoutTopic(t *testing.T) {
	setAWSEnv(t)
	t.Setenv("AWS_SNS_TOPIC_ARN", "")

	rt, err := NewRuntime(context.Background(), "scheduled-jobs")
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	assert.Nil(t, rt.Notifier())
}

func TestNewRuntimeRejectsBadHealthTargets(t *testing.T) {
	setAWSEnv(t)
	t.Setenv("JOBS_HEALTH_SERVICES", "no-url")

	_, err := NewRuntime(context.Background(), "scheduled-jobs")
	assert.Error(t, err)
}
