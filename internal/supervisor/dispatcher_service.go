// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package supervisor

import "context"

// JobRunner is the dispatcher-side half of the supervision contract: Run
// blocks consuming jobs until the context is canceled.
type JobRunner interface {
	Run(ctx context.Context) error
}

// DispatcherService supervises the job dispatcher's consume loop.
type DispatcherService struct {
	runner JobRunner
}

// NewDispatcherService wraps the runner as a suture service.
func NewDispatcherService(runner JobRunner) *DispatcherService {
	return &DispatcherService{runner: runner}
}

// Serve implements suture.Service.
func (d *DispatcherService) Serve(ctx context.Context) error {
	return d.runner.Run(ctx)
}

// String identifies the service in supervisor logs.
func (d *DispatcherService) String() string {
	return "job-dispatcher"
}
