// Package metrics holds the Prometheus collectors of the server: HTTP request
// latency, video task outcomes and credit movements.
package metrics
