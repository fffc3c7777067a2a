// Package notifications pushes job lifecycle events to an ntfy topic.
//
// The service is optional: without a configured topic every call is a noop,
// so callers never need to branch on whether notifications are enabled.
package notifications
