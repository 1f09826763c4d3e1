package service

import (
	"context"

	"github.com/okian/dilemma/internal/domain/model"
)

// publish writes results and the finished status in one store update and
// tells subscribers.
func (s *Service) publish(ctx context.Context, sessionID string, results model.Results) error {
	err := retryOnce(ctx, "publish_results", func(ctx context.Context) error {
		return s.store.PublishResults(ctx, sessionID, results)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, sessionID, model.StatusFinished)
	return nil
}
