package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vrwarp/locus/internal/health/models"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
)

// ConfirmGhost attaches the person's total check-in count to a ghost finding.
// On failure the finding comes back unchanged with an error wrapping
// ErrConfirmationFailed.
func (s *Service) ConfirmGhost(ctx context.Context, finding models.Finding) (models.Finding, error) {
	if finding.Tag != models.TagGhost || finding.PersonID() == "" {
		return finding, dErrors.New(dErrors.CodeBadRequest, "only ghost findings with a subject can be confirmed")
	}
	personID := finding.PersonID()

	ctx, span := s.tracer.Start(ctx, "health.ConfirmGhost")
	defer span.End()

	n, err := s.counter.CheckInCount(ctx, personID)
	if err != nil {
		s.metrics.IncrementConfirmation("failed")
		s.logger.WarnContext(ctx, "ghost confirmation failed",
			"person_id", personID,
			"error", err,
		)
		return finding, fmt.Errorf("%w: person %s: %w", ErrConfirmationFailed, personID, err)
	}
	s.metrics.IncrementConfirmation("confirmed")
	return finding.WithCheckInCount(n), nil
}

// ConfirmGhosts confirms a batch with bounded concurrency. The result has the
// same length and order as findings; failed entries stay unconfirmed and their
// errors are joined.
func (s *Service) ConfirmGhosts(ctx context.Context, findings []models.Finding) ([]models.Finding, error) {
	out := make([]models.Finding, len(findings))
	errs := make([]error, len(findings))

	var g errgroup.Group
	g.SetLimit(s.confirmConcurrency)
	for i, f := range findings {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i], errs[i] = f, fmt.Errorf("%w: %w", ErrConfirmationFailed, err)
				return nil
			}
			out[i], errs[i] = s.ConfirmGhost(ctx, f)
			return nil
		})
	}
	_ = g.Wait()
	return out, errors.Join(errs...)
}
