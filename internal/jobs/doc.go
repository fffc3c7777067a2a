// Package jobs persists flattening jobs and enforces their lifecycle.
//
// The store is backed by SQLite and is the single source of truth for job
// state. Every state change flows through Transition, which validates the
// move against the lifecycle graph inside one transaction, so concurrent
// writers cannot skip states or resurrect terminal jobs.
package jobs
