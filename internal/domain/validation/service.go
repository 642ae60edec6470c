package validation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stayonboard-server-go/internal/domain/image"
	"stayonboard-server-go/internal/domain/imagestore"
	"stayonboard-server-go/internal/domain/validation/aggregate"
	"stayonboard-server-go/internal/domain/validation/repository"
	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
	"stayonboard-server-go/internal/platform/logging"
)

// Service is the application-facing API: it owns uploads, runs validations
// through the evaluator and keeps the history ledger.
type Service struct {
	evaluator *Evaluator
	history   repository.HistoryStore
	store     imagestore.Store
	images    *image.Validator
	logger    *logging.Logger

	defaultPageSize int
	maxPageSize     int
}

// NewService assembles the validation service.
func NewService(
	evaluator *Evaluator,
	history repository.HistoryStore,
	store imagestore.Store,
	images *image.Validator,
	cfg *config.Config,
	logger *logging.Logger,
) *Service {
	defaultPage := cfg.History.DefaultPageSize
	if defaultPage <= 0 {
		defaultPage = 20
	}
	maxPage := cfg.History.MaxPageSize
	if maxPage < defaultPage {
		maxPage = defaultPage
	}
	return &Service{
		evaluator:       evaluator,
		history:         history,
		store:           store,
		images:          images,
		logger:          logger,
		defaultPageSize: defaultPage,
		maxPageSize:     maxPage,
	}
}

// SaveImage validates and stores an uploaded payload, returning the handle
// later requests reference.
func (s *Service) SaveImage(ctx context.Context, raw []byte, declaredFormat string) (imagestore.Handle, error) {
	img, meta, err := s.images.Decode(raw, declaredFormat)
	if err != nil {
		return imagestore.Handle{}, err
	}

	handle, err := s.store.Save(ctx, raw, imagestore.Handle{
		Fingerprint: imagestore.Fingerprint(img),
		Format:      meta.Format,
		Width:       meta.Width,
		Height:      meta.Height,
		SizeBytes:   meta.FileSize,
	})
	if err != nil {
		return imagestore.Handle{}, err
	}
	s.logger.InfoTag("STORE", "image saved id=%s format=%s %dx%d",
		handle.StorageID, handle.Format, handle.Width, handle.Height)
	return handle, nil
}

// Validate evaluates the request for the principal and appends the outcome
// to history. A history write failure fails the whole operation; a verdict
// that was never recorded did not happen.
func (s *Service) Validate(ctx context.Context, principal string, req aggregate.Request) (aggregate.Record, error) {
	if principal == "" {
		return aggregate.Record{}, errors.New(errors.KindInvalidParameters, "validation.validate",
			"principal required")
	}

	verdict, fromCache, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		return aggregate.Record{}, err
	}
	return s.appendRecord(ctx, principal, req, verdict, fromCache)
}

// GetRecord returns one history record, refusing access across principals.
func (s *Service) GetRecord(ctx context.Context, principal, id string) (aggregate.Record, error) {
	record, err := s.history.Get(ctx, id)
	if err != nil {
		return aggregate.Record{}, err
	}
	if record.Principal != principal {
		return aggregate.Record{}, errors.New(errors.KindForbidden, "validation.get",
			"record belongs to another principal")
	}
	return record, nil
}

// ListHistory pages through the principal's records, newest first.
func (s *Service) ListHistory(ctx context.Context, principal string, pageSize int, token string) (repository.Page, error) {
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return s.history.ListByPrincipal(ctx, principal, pageSize, token)
}

// Rerun re-executes a past validation against the stored images and appends
// a fresh record. The original record is never modified. The rerun bypasses
// the cache so it exercises the full pipeline.
func (s *Service) Rerun(ctx context.Context, principal, id string) (aggregate.Record, error) {
	original, err := s.GetRecord(ctx, principal, id)
	if err != nil {
		return aggregate.Record{}, err
	}

	// Every referenced image must still be resolvable; a rerun over
	// missing pixels cannot reproduce anything.
	for _, imageID := range original.Request.ImageIDs() {
		if _, err := s.store.Resolve(ctx, imageID); err != nil {
			return aggregate.Record{}, err
		}
	}

	verdict, err := s.evaluator.EvaluateFresh(ctx, original.Request)
	if err != nil {
		return aggregate.Record{}, err
	}
	return s.appendRecord(ctx, principal, original.Request, verdict, false)
}

// SupportedFormats lists the accepted upload formats.
func (s *Service) SupportedFormats() []string {
	return s.images.SupportedFormats()
}

// Close releases the stores behind the service.
func (s *Service) Close(ctx context.Context) error {
	var first error
	if err := s.history.Close(ctx); err != nil {
		first = err
	}
	if err := s.store.Close(ctx); err != nil && first == nil {
		first = err
	}
	return first
}

func (s *Service) appendRecord(
	ctx context.Context,
	principal string,
	req aggregate.Request,
	verdict aggregate.Verdict,
	fromCache bool,
) (aggregate.Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return aggregate.Record{}, errors.Wrap(errors.KindStorage, "validation.record",
			"generate record id", err)
	}
	record := aggregate.Record{
		ID:        id.String(),
		Principal: principal,
		Request:   req,
		Verdict:   verdict,
		FromCache: fromCache,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.history.Append(ctx, record); err != nil {
		return aggregate.Record{}, err
	}
	s.logger.InfoTag("HISTORY", "record %s kind=%s status=%s cached=%t",
		record.ID, req.Kind, verdict.Status, fromCache)
	return record, nil
}
