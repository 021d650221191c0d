package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics publishes command, query and request timings to CloudWatch. A nil
// client disables publishing entirely, which is how the memory and sqlite
// drivers run locally.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewMetrics creates a metrics sink for the given namespace
func NewMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordCommand records latency and outcome for a command bus dispatch
func (m *Metrics) RecordCommand(ctx context.Context, command string, duration time.Duration, success bool) {
	m.put(ctx, m.timingData("Command", command, duration, success))
}

// RecordQuery records latency and outcome for a query bus dispatch
func (m *Metrics) RecordQuery(ctx context.Context, query string, duration time.Duration, success bool) {
	m.put(ctx, m.timingData("Query", query, duration, success))
}

// RecordHTTPRequest records latency and status for a served HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, route string, status int, duration time.Duration) {
	dimensions := []cwtypes.Dimension{
		{Name: aws.String("Route"), Value: aws.String(route)},
		{Name: aws.String("Status"), Value: aws.String(strconv.Itoa(status))},
	}

	m.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String("RequestLatency"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("RequestCount"),
			Dimensions: dimensions,
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

func (m *Metrics) timingData(kind, name string, duration time.Duration, success bool) []cwtypes.MetricDatum {
	status := "success"
	if !success {
		status = "failure"
	}

	dimensions := []cwtypes.Dimension{
		{Name: aws.String(kind), Value: aws.String(name)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}

	return []cwtypes.MetricDatum{
		{
			MetricName: aws.String(kind + "Latency"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String(kind + "Count"),
			Dimensions: dimensions,
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	}
}

// put ships the data points, never failing the operation being measured
func (m *Metrics) put(ctx context.Context, data []cwtypes.MetricDatum) {
	if m.client == nil {
		return
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil && m.logger != nil {
		m.logger.Warn("Failed to publish metrics", zap.Error(err))
	}
}
