// Package runtime provides the execution context for pubsite commands.
//
// It encapsulates shared dependencies needed by commands, such as the
// project configuration, logger, job queue, and history store.
package runtime
