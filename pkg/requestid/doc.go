// Package requestid tags each HTTP request with a correlation id.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUID,
// echoes it in the response and stores it in the request context, where
// LoggerExtractor picks it up for every log record written with that context.
package requestid
