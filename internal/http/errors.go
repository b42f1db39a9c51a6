package http

import (
	"errors"

	"voice-appointment-service/internal/schema"
	"voice-appointment-service/internal/service/scheduling"
)

func asValidation(err error) (*schema.ValidationError, bool) {
	var verr *schema.ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}

func asConflict(err error) (*scheduling.ConflictError, bool) {
	var cerr *scheduling.ConflictError
	ok := errors.As(err, &cerr)
	return cerr, ok
}
