// Package api hosts the optional status server started next to a crawl.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/crawl for the crawl's state and running counters.
package api
