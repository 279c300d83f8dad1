package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushMetrics pushes the current state of the default registry to a pushgateway
// at url once. It is meant for short-lived workloads that finish before a scrape.
func PushMetrics(url, job string, headers map[string]string, grouping map[string]string) error {
	header := http.Header{}
	for k, v := range headers {
		header.Add(k, v)
	}
	pusher := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Header(header)
	for k, v := range grouping {
		pusher = pusher.Grouping(k, v)
	}
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
