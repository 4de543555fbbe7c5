package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/generator"
	"github.com/tmakar/linkshort/internal/logger"
	"github.com/tmakar/linkshort/internal/model"
	"github.com/tmakar/linkshort/internal/repository"
	"github.com/tmakar/linkshort/internal/validator"
)

const defaultStorageTimeout = 5 * time.Second

// CodeGenerator produces free short codes against an existence predicate.
type CodeGenerator interface {
	GenerateUnique(ctx context.Context, exists generator.ExistsFunc, maxAttempts int) (string, error)
}

// LinkService orchestrates link creation, resolution and deletion. It is the
// only caller of the store; every typed outcome it returns maps to exactly
// one external status category.
type LinkService struct {
	store   repository.LinkStore
	gen     CodeGenerator
	log     *logger.Logger
	timeout time.Duration
}

// NewLinkService creates a service. A non-positive timeout falls back to the
// 5s default applied around every storage round-trip.
func NewLinkService(store repository.LinkStore, gen CodeGenerator, log *logger.Logger, timeout time.Duration) *LinkService {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = defaultStorageTimeout
	}
	return &LinkService{
		store:   store,
		gen:     gen,
		log:     log,
		timeout: timeout,
	}
}

// Create validates the request and inserts a link. A supplied custom code
// goes straight to the store: the uniqueness constraint, not a pre-check,
// decides conflicts. Without a custom code a free code is generated first;
// if that code still collides at insert time (a race between the existence
// check and the insert) the outcome is a generation failure, not a conflict,
// since the client never chose the code.
func (s *LinkService) Create(ctx context.Context, targetURL, customCode string) (*model.Link, error) {
	if err := validator.ValidateCreateRequest(targetURL, customCode); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if customCode != "" {
		link, err := s.store.Insert(ctx, customCode, targetURL)
		if err != nil {
			return nil, err
		}
		s.log.Debug("link created", "code", link.Code, "custom", true)
		return link, nil
	}

	code, err := s.gen.GenerateUnique(ctx, s.store.Exists, generator.DefaultMaxAttempts)
	if err != nil {
		return nil, err
	}

	link, err := s.store.Insert(ctx, code, targetURL)
	if stderrors.Is(err, errors.ErrDuplicateCode) {
		return nil, fmt.Errorf("%w: generated code collided at insert", errors.ErrGenerationExhausted)
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug("link created", "code", link.Code, "custom", false)
	return link, nil
}

// Resolve looks up the link and records the click, returning the target URL
// for the caller to redirect to. The lookup and the increment are separate
// store operations; a link deleted between them surfaces as not-found, never
// as a server error.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.store.FindByCode(ctx, code); err != nil {
		return "", err
	}

	link, err := s.store.IncrementClick(ctx, code)
	if err != nil {
		return "", err
	}

	return link.TargetURL, nil
}

// Get is a pure lookup with no side effects.
func (s *LinkService) Get(ctx context.Context, code string) (*model.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.FindByCode(ctx, code)
}

// List returns all links ordered by creation time ascending.
func (s *LinkService) List(ctx context.Context) ([]model.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.ListAll(ctx)
}

// Delete removes the link, freeing its code for reuse.
func (s *LinkService) Delete(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Delete(ctx, code); err != nil {
		return err
	}
	s.log.Debug("link deleted", "code", code)
	return nil
}
