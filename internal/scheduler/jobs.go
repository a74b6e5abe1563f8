package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/resource"
	"github.com/shopadmin/internal/session"
)

// SessionJob re-reads the signed-in account so role or profile changes
// made elsewhere show up. It does nothing while signed out. A revoked
// token surfaces as a 401, which ends the session through the client.
func SessionJob(ctrl *session.Controller) Job {
	return func(ctx context.Context) error {
		if !ctrl.Snapshot().IsAuthenticated() {
			return nil
		}
		_, err := ctrl.Refresh(ctx)
		if errors.Is(err, session.ErrNotAuthenticated) {
			return nil
		}
		return err
	}
}

// RefreshJob repeats the last List of s.
func RefreshJob[T any, In any](name string, s *resource.Synchronizer[T, In]) Job {
	return func(ctx context.Context) error {
		if _, err := s.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to refresh %s: %w", name, err)
		}
		return nil
	}
}

// Gated runs job only while the session satisfies tier, so background
// refreshes never ask for collections the account may not see.
func Gated(ctrl *session.Controller, tier gate.Tier, job Job) Job {
	return func(ctx context.Context) error {
		if !tier.Check(ctrl.Snapshot()).Allowed() {
			return nil
		}
		return job(ctx)
	}
}

// All runs jobs in order and joins their errors.
func All(jobs ...Job) Job {
	return func(ctx context.Context) error {
		var errs []error
		for _, job := range jobs {
			if err := job(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
