package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corewire/stepflow/dispatch"
)

// TestNewSQSDispatcherBuildsClientFromStaticCredentials only exercises
// construction, not a live SendMessage, since no AWS endpoint is
// available in a test environment; option wiring is still covered.
func TestNewSQSDispatcherBuildsClientFromStaticCredentials(t *testing.T) {
	d, err := dispatch.NewSQSDispatcher(context.Background(), dispatch.SQSOptions{
		Region:          "us-east-1",
		QueueURL:        "https://sqs.us-east-1.amazonaws.com/000000000000/stepflow-test",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        "http://localhost:4566",
	})
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestNewSQSDispatcherBuildsWithoutExplicitRegion(t *testing.T) {
	d, err := dispatch.NewSQSDispatcher(context.Background(), dispatch.SQSOptions{
		QueueURL: "https://sqs.us-east-1.amazonaws.com/000000000000/stepflow-test",
	})
	require.NoError(t, err)
	assert.NotNil(t, d)
}
