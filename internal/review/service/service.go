// Package service runs the review workflow: a reviewer opens a decision for a
// contact finding, approves or rejects it, and approved values are written to
// the directory one at a time.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dirmodels "github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/internal/health/analyzers"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/review/metrics"
	"github.com/vrwarp/locus/internal/review/models"
	id "github.com/vrwarp/locus/pkg/domain"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
	audit "github.com/vrwarp/locus/pkg/platform/audit"
	"github.com/vrwarp/locus/pkg/platform/middleware/metadata"
	"github.com/vrwarp/locus/pkg/platform/sentinel"
	"github.com/vrwarp/locus/pkg/requestcontext"
)

// Store persists open decisions.
type Store interface {
	Save(ctx context.Context, d *models.Decision) error
	FindByID(ctx context.Context, decisionID id.DecisionID) (*models.Decision, error)
	FindOpen(ctx context.Context, personID, field string) (*models.Decision, error)
	List(ctx context.Context) ([]*models.Decision, error)
	Delete(ctx context.Context, decisionID id.DecisionID) error
}

// Directory is the write path plus the re-read used for verification.
type Directory interface {
	GetPerson(ctx context.Context, personID string) (dirmodels.Person, error)
	UpdatePersonField(ctx context.Context, personID, field, value string) error
}

// AuditPublisher records correction events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Invalidator drops cached roster snapshots after a successful write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ErrWriteFailed marks a correction the directory did not accept. The
// decision is left in the failed state.
var ErrWriteFailed = errors.New("correction write failed")

const DefaultMaxAttempts = 3

type Service struct {
	store           Store
	directory       Directory
	publisher       AuditPublisher
	invalidator     Invalidator
	metrics         *metrics.Metrics
	logger          *slog.Logger
	maxAttempts     int
	minPhoneDigits  int
	checkNameCasing bool
	locks           *personLocks
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithMaxAttempts bounds how many times a decision may be written.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithValidation sets the contact rules used for proposed values and for
// re-validating corrected records.
func WithValidation(minPhoneDigits int, checkNameCasing bool) Option {
	return func(s *Service) {
		if minPhoneDigits > 0 {
			s.minPhoneDigits = minPhoneDigits
		}
		s.checkNameCasing = checkNameCasing
	}
}

func New(store Store, directory Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("review store is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	s := &Service{
		store:           store,
		directory:       directory,
		logger:          slog.Default(),
		maxAttempts:     DefaultMaxAttempts,
		minPhoneDigits:  healthmodels.DefaultConfig().MinPhoneDigits,
		checkNameCasing: true,
		locks:           newPersonLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open creates a pending decision from a contact finding's suggestion.
func (s *Service) Open(ctx context.Context, finding healthmodels.Finding) (*models.Decision, error) {
	if finding.Tag != healthmodels.TagContact || len(finding.Subjects) != 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "only single-person contact findings can be reviewed")
	}
	if finding.Suggestion == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "finding has no suggestion; supply a value")
	}
	return s.OpenWithValue(ctx, models.OpenRequest{
		PersonID: finding.PersonID(),
		Field:    finding.Value("field"),
		Proposed: *finding.Suggestion,
		Original: finding.Value("current"),
	})
}

// OpenWithValue creates a pending decision for a caller-supplied value. Only
// one open decision may exist per person field.
func (s *Service) OpenWithValue(ctx context.Context, req models.OpenRequest) (*models.Decision, error) {
	req.PersonID = strings.TrimSpace(req.PersonID)
	req.Proposed = strings.TrimSpace(req.Proposed)
	if req.PersonID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "person id is required")
	}
	if err := s.validateProposed(req.Field, req.Proposed); err != nil {
		return nil, err
	}

	unlock := s.lockPerson(req.PersonID)
	defer unlock()

	existing, err := s.store.FindOpen(ctx, req.PersonID, req.Field)
	switch {
	case err == nil:
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("decision %s is already open for %s of person %s", existing.ID, req.Field, req.PersonID))
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check open decisions")
	}

	now := requestcontext.Now(ctx)
	d := &models.Decision{
		ID:        id.NewDecisionID(),
		PersonID:  req.PersonID,
		Field:     req.Field,
		Proposed:  req.Proposed,
		Original:  req.Original,
		State:     models.StatePending,
		ActorID:   requestcontext.ActorID(ctx),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save decision")
	}

	s.metrics.IncrementDecision("opened")
	s.emitOperational(ctx, audit.EventDecisionOpened, d, "")
	return d, nil
}

func (s *Service) validateProposed(field, value string) error {
	switch field {
	case dirmodels.FieldPhone:
		if !analyzers.ValidPhone(value, s.minPhoneDigits) {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("proposed phone %q is not valid", value))
		}
	case dirmodels.FieldName:
		if value == "" {
			return dErrors.New(dErrors.CodeValidation, "proposed name is empty")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("field %q cannot be reviewed", field))
	}
	return nil
}

// Approve performs the single directory write for a pending decision. On
// success the decision is discarded and the person is re-read and
// re-validated. On failure the decision moves to failed and the returned
// error wraps ErrWriteFailed.
func (s *Service) Approve(ctx context.Context, decisionID id.DecisionID) (*models.Outcome, error) {
	d, unlock, err := s.lockDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := requestcontext.Now(ctx)
	if err := d.Transition(models.StateApproved, now); err != nil {
		return nil, err
	}
	d.Attempts++
	d.ActorID = requestcontext.ActorID(ctx)
	d.LastError = ""
	if err := s.store.Save(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save decision")
	}

	start := time.Now()
	writeErr := s.directory.UpdatePersonField(ctx, d.PersonID, d.Field, d.Proposed)
	if writeErr != nil {
		s.metrics.ObserveWrite("failed", time.Since(start))
		return s.fail(ctx, d, writeErr)
	}
	s.metrics.ObserveWrite("applied", time.Since(start))

	if err := d.Transition(models.StateApplied, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, audit.EventCorrectionApplied, d, ""); err != nil {
		// Keep the applied decision for reconciliation.
		_ = s.store.Save(ctx, d)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "correction applied but not recorded")
	}
	if err := s.store.Delete(ctx, d.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to discard applied decision",
			"decision_id", d.ID.String(),
			"error", err,
		)
	}
	s.metrics.IncrementDecision(string(models.StateApplied))
	s.logger.InfoContext(ctx, "correction applied",
		"decision_id", d.ID.String(),
		"person_id", d.PersonID,
		"field", d.Field,
		"attempts", d.Attempts,
	)

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate roster cache", "error", err)
		}
	}
	return s.verify(ctx, *d), nil
}

func (s *Service) fail(ctx context.Context, d *models.Decision, writeErr error) (*models.Outcome, error) {
	if err := d.Transition(models.StateFailed, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	d.LastError = writeErr.Error()
	if err := s.store.Save(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save decision")
	}
	s.metrics.IncrementDecision(string(models.StateFailed))
	s.logger.WarnContext(ctx, "correction write failed",
		"decision_id", d.ID.String(),
		"person_id", d.PersonID,
		"field", d.Field,
		"attempts", d.Attempts,
		"error", writeErr,
	)
	if err := s.emit(ctx, audit.EventCorrectionFailed, d, writeErr.Error()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record correction failure")
	}

	code := dErrors.CodeUnavailable
	if errors.Is(writeErr, sentinel.ErrNotFound) {
		code = dErrors.CodeNotFound
	}
	return &models.Outcome{Decision: *d}, dErrors.Wrap(
		fmt.Errorf("%w: %w", ErrWriteFailed, writeErr), code, "directory rejected the correction")
}

// verify re-reads the person and re-runs the contact checks for the field.
func (s *Service) verify(ctx context.Context, d models.Decision) *models.Outcome {
	out := &models.Outcome{Decision: d}
	p, err := s.directory.GetPerson(ctx, d.PersonID)
	if err != nil {
		s.logger.WarnContext(ctx, "could not re-read corrected person",
			"person_id", d.PersonID,
			"error", err,
		)
		return out
	}
	out.Person = &p
	out.Verified = true
	out.Remaining = s.Validate(p)
	out.Resolved = true
	for _, f := range out.Remaining {
		if f.Value("field") == d.Field {
			out.Resolved = false
		}
	}
	return out
}

// Validate runs the contact checks the review workflow corrects.
func (s *Service) Validate(p dirmodels.Person) []healthmodels.Finding {
	findings := []healthmodels.Finding{}
	if f, ok := analyzers.CheckPhone(p, s.minPhoneDigits); ok {
		findings = append(findings, f)
	}
	if s.checkNameCasing {
		if f, ok := analyzers.CheckNameCasing(p); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// Reject discards a pending decision without writing anything.
func (s *Service) Reject(ctx context.Context, decisionID id.DecisionID, reason string) (*models.Decision, error) {
	d, unlock, err := s.lockDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := d.Transition(models.StateRejected, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	d.ActorID = requestcontext.ActorID(ctx)
	if err := s.emit(ctx, audit.EventCorrectionRejected, d, reason); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record rejection")
	}
	if err := s.store.Delete(ctx, d.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to discard decision")
	}
	s.metrics.IncrementDecision(string(models.StateRejected))
	return d, nil
}

// Retry returns a failed decision to pending while attempts remain. Retries
// are always manual.
func (s *Service) Retry(ctx context.Context, decisionID id.DecisionID) (*models.Decision, error) {
	d, unlock, err := s.lockDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if d.State == models.StateFailed && d.Attempts >= s.maxAttempts {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("decision %s reached the limit of %d attempts", d.ID, s.maxAttempts))
	}
	if err := d.Transition(models.StatePending, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save decision")
	}
	s.metrics.IncrementDecision("retried")
	s.emitOperational(ctx, audit.EventDecisionRetried, d, d.LastError)
	return d, nil
}

func (s *Service) Get(ctx context.Context, decisionID id.DecisionID) (*models.Decision, error) {
	d, err := s.store.FindByID(ctx, decisionID)
	if err != nil {
		return nil, s.lookupError(err, decisionID)
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Decision, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list decisions")
	}
	return list, nil
}

// lockDecision resolves the person of a decision, takes that person's lock
// and re-reads the decision under it.
func (s *Service) lockDecision(ctx context.Context, decisionID id.DecisionID) (*models.Decision, func(), error) {
	d, err := s.store.FindByID(ctx, decisionID)
	if err != nil {
		return nil, nil, s.lookupError(err, decisionID)
	}
	unlock := s.lockPerson(d.PersonID)
	d, err = s.store.FindByID(ctx, decisionID)
	if err != nil {
		unlock()
		return nil, nil, s.lookupError(err, decisionID)
	}
	return d, unlock, nil
}

func (s *Service) lockPerson(personID string) func() {
	start := time.Now()
	unlock := s.locks.lock(personID)
	s.metrics.ObserveLockWait(time.Since(start))
	return unlock
}

func (s *Service) lookupError(err error, decisionID id.DecisionID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("decision %s not found", decisionID))
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
}

func (s *Service) event(ctx context.Context, action audit.AuditEvent, d *models.Decision, reason string) audit.Event {
	return audit.Event{
		Timestamp:  requestcontext.Now(ctx),
		Action:     string(action),
		PersonID:   d.PersonID,
		DecisionID: d.ID,
		Field:      d.Field,
		Original:   d.Original,
		Proposed:   d.Proposed,
		Reason:     reason,
		ActorID:    requestcontext.ActorID(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		Client:     metadata.DescribeClient(requestcontext.UserAgent(ctx)),
	}
}

// emit records a compliance event; failures are returned.
func (s *Service) emit(ctx context.Context, action audit.AuditEvent, d *models.Decision, reason string) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, s.event(ctx, action, d, reason))
}

// emitOperational records a workflow event; failures are only logged.
func (s *Service) emitOperational(ctx context.Context, action audit.AuditEvent, d *models.Decision, reason string) {
	if err := s.emit(ctx, action, d, reason); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(action),
			"decision_id", d.ID.String(),
			"error", err,
		)
	}
}
