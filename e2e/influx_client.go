package e2e

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient wraps the InfluxDB v2 client used to inspect the points the
// service wrote during an end-to-end run.
type InfluxClient struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient creates a client for an already running server.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{
		org:    org,
		bucket: bucket,
		client: c,
		query:  c.QueryAPI(org),
	}
}

// CountPoints returns how many points of measurement were written in the
// last window.
func (c *InfluxClient) CountPoints(ctx context.Context, measurement string, window time.Duration) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q) |> range(start:-%ds) |> filter(fn: (r) => r._measurement == %q)`,
		c.bucket, int(window.Seconds()), measurement)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	count := 0
	for res.Next() {
		count++
	}
	return count, res.Err()
}

// WaitForPoints polls until at least min points of measurement exist or ctx
// expires.
func (c *InfluxClient) WaitForPoints(ctx context.Context, measurement string, min int) (int, error) {
	for {
		n, err := c.CountPoints(ctx, measurement, 5*time.Minute)
		if err == nil && n >= min {
			return n, nil
		}
		select {
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
			return n, err
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
