package usecases

import (
	"context"

	"github.com/cockroachdb/errors"
)

type LivenessUsecase struct {
	sessions SessionOrchestrator
}

// Liveness only looks at in-process state, never at the courier platform.
func (u *LivenessUsecase) Liveness(ctx context.Context) error {
	if u.sessions == nil {
		return errors.New("courier session orchestrator is not initialized")
	}
	return nil
}
