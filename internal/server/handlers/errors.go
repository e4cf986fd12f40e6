// Maps storage errors to structured API errors.

package handlers

import (
	"errors"

	"github.com/cipherstudio/studio/internal/apierrors"
	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
	"github.com/cipherstudio/studio/internal/storage"
)

// projectError translates storage and validation errors into API errors so
// handlers stay free of status code plumbing.
func projectError(err error, fallback string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrProjectNotFound):
		return apierrors.NotFound("Project")
	case errors.Is(err, storage.ErrAccessDenied):
		return apierrors.Forbidden("You do not have access to this project")
	case errors.Is(err, storage.ErrVersionConflict):
		return apierrors.Conflict("Project was modified concurrently, reload and retry")
	case errors.Is(err, jsonldb.ErrDuplicateRow):
		return apierrors.Conflict("A project with this ID already exists")
	case isValidationError(err):
		return apierrors.BadRequest(err.Error())
	default:
		return apierrors.InternalWithError(fallback, err)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, entity.ErrEmptyName) ||
		errors.Is(err, entity.ErrNameTooLong) ||
		errors.Is(err, entity.ErrDuplicateID) ||
		errors.Is(err, entity.ErrInvalidParent) ||
		errors.Is(err, entity.ErrMissingNodeID) ||
		errors.Is(err, entity.ErrUnknownKind)
}
