// Package app wires the daemon together: configuration, logging, the serial
// meter client, the in-memory reading log, optional PostgreSQL persistence
// and the status HTTP server, plus the polling lifecycle that ties them all
// to one context.
package app
