package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/louisbranch/riftforge/internal/forge/storage"
	"github.com/louisbranch/riftforge/internal/forge/transfer"
	apperrors "github.com/louisbranch/riftforge/internal/platform/errors"
	"github.com/louisbranch/riftforge/internal/platform/errors/i18n"
)

// Notification is a user-facing rendering of an error.
type Notification struct {
	Level   apperrors.Severity
	Code    apperrors.Code
	Message string
}

// maxProfiler is implemented by stores with a configurable profile limit.
type maxProfiler interface {
	MaxProfiles() int
}

func (s *Service) maxProfiles() int {
	if m, ok := s.store.(maxProfiler); ok {
		return m.MaxProfiles()
	}
	return s.catalog.MaxProfiles
}

// classify converts storage and transfer errors into coded domain errors.
func (s *Service) classify(err error, profileID int64) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	id := strconv.FormatInt(profileID, 10)
	var validation *transfer.ValidationError
	switch {
	case errors.As(err, &validation):
		return apperrors.Validation("save document failed validation", validation.Defects, err)
	case errors.Is(err, transfer.ErrMalformedInput):
		return apperrors.Wrap(apperrors.CodeMalformedInput, "save document is not valid JSON", err)
	case errors.Is(err, transfer.ErrUnknownFormat):
		return apperrors.Wrap(apperrors.CodeUnknownFormat, "save document format not recognized", err)
	case errors.Is(err, storage.ErrNoActiveProfile):
		return apperrors.Wrap(apperrors.CodeNoActiveProfile, "no active profile", err)
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.WrapWithMetadata(apperrors.CodeNotFound, "profile not found",
			map[string]string{"ProfileID": id}, err)
	case errors.Is(err, storage.ErrCapacityExceeded):
		return apperrors.WrapWithMetadata(apperrors.CodeCapacityExceeded, "profile capacity exceeded",
			map[string]string{"Max": strconv.Itoa(s.maxProfiles())}, err)
	case errors.Is(err, storage.ErrInvariantViolation):
		return apperrors.Wrap(apperrors.CodeInvariantViolation, "storage invariant violated", err)
	case errors.Is(err, storage.ErrInvalidArgument):
		return apperrors.WrapWithMetadata(apperrors.CodeInvalidArgument, err.Error(),
			map[string]string{"Reason": reason(err)}, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.CodeUnknown, "operation canceled", err)
	default:
		return apperrors.Wrap(apperrors.CodeStorageFailure, "storage operation failed", err)
	}
}

// reason strips the sentinel prefix from an invalid argument error.
func reason(err error) string {
	msg := err.Error()
	if _, after, found := strings.Cut(msg, storage.ErrInvalidArgument.Error()+": "); found {
		return after
	}
	return msg
}

// Notice renders err for the user in the service locale.
func (s *Service) Notice(err error) Notification {
	return Notice(err, s.locale)
}

// Notice renders err for the user in locale. Validation failures show the
// first defect and log the full list.
func Notice(err error, locale string) Notification {
	if err == nil {
		return Notification{}
	}
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(apperrors.CodeUnknown, err.Error(), err)
	}
	if appErr.Code == apperrors.CodeValidationFailed && len(appErr.Details) > 1 {
		log.Printf("service: validation defects: %q", appErr.Details)
	}
	catalog := i18n.GetCatalog(locale)
	return Notification{
		Level:   appErr.Code.Severity(),
		Code:    appErr.Code,
		Message: catalog.Format(string(appErr.Code), appErr.Metadata),
	}
}
