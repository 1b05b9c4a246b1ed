// Package middleware provides HTTP middleware for the network transports.
// It covers request metrics recording and security response headers.
package middleware
