package service

import (
	"context"
	"log"

	"github.com/louisbranch/riftforge/internal/forge/storage"
	apperrors "github.com/louisbranch/riftforge/internal/platform/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AutoSave saves state to the active profile. It is meant to be driven by a
// caller-owned debounce timer and is safe to call again after a failure.
//
// On success state becomes the last-known-good state and any failure streak
// ends. On failure the last-known-good state is kept and a notification is
// returned only for the first failure of a streak, or when the failure code
// changes; later identical failures return a nil notification with the error.
func (s *Service) AutoSave(ctx context.Context, state storage.State) (notice *Notification, err error) {
	ctx, span := s.tracer.Start(ctx, "service.AutoSave")
	defer func() { endSpan(span, err) }()

	err = s.SaveState(ctx, state)
	if err == nil {
		return nil, nil
	}

	code := apperrors.CodeOf(err)
	s.mu.Lock()
	surface := !s.failing || s.failureCode != code
	s.failing = true
	s.failureCode = code
	s.mu.Unlock()

	if !surface {
		return nil, err
	}
	log.Printf("service: auto-save failed (%s): %v", code, err)
	n := s.Notice(err)
	return &n, err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
