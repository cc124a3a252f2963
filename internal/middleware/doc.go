// Package middleware provides the HTTP middleware of the glitzhit service:
// W3C extended request logging tagged with the job id, Prometheus request
// metrics keyed by route template, and gzip compression that stays out of
// the way of progress streams and media responses.
package middleware
