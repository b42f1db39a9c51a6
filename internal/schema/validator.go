// Package schema validates appointment fields before they are committed.
package schema

import (
	"fmt"
	"strings"

	"voice-appointment-service/internal/catalog"
	"voice-appointment-service/internal/models"
)

// FieldError is a user-facing message about one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field, in field order.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid appointment: " + strings.Join(parts, "; ")
}

// Message returns the message for field, if any.
func (e *ValidationError) Message(field string) (string, bool) {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

// Validator checks required fields and catalog references.
type Validator struct {
	catalog *catalog.Catalog
}

// New creates a validator. A nil catalog skips reference checks.
func New(cat *catalog.Catalog) *Validator {
	return &Validator{catalog: cat}
}

// Validate returns a *ValidationError when f cannot be committed.
func (v *Validator) Validate(f models.Fields) error {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	switch {
	case strings.TrimSpace(f.PatientID) == "":
		add("patientId", "El paciente es requerido")
	case v.catalog != nil:
		if _, ok := v.catalog.Patient(f.PatientID); !ok {
			add("patientId", fmt.Sprintf("El paciente %q no existe", f.PatientID))
		}
	}

	switch {
	case strings.TrimSpace(f.OfficeID) == "":
		add("officeId", "El consultorio es requerido")
	case v.catalog != nil:
		if _, ok := v.catalog.Office(f.OfficeID); !ok {
			add("officeId", fmt.Sprintf("El consultorio %q no existe", f.OfficeID))
		}
	}

	if f.Date == nil {
		add("date", "La fecha es requerida")
	} else if !f.Date.IsValid() {
		add("date", "La fecha no es válida")
	}

	if f.Time == nil {
		add("time", "La hora es requerida")
	} else if !f.Time.IsValid() {
		add("time", "La hora no es válida")
	}

	if len(f.ServiceIDs) == 0 {
		add("serviceIds", "Seleccione al menos un servicio")
	} else if v.catalog != nil {
		for _, id := range f.ServiceIDs {
			if _, ok := v.catalog.Service(id); !ok {
				add("serviceIds", fmt.Sprintf("El servicio %q no existe", id))
				break
			}
		}
	}

	if f.Duration < models.MinDuration {
		add("duration", fmt.Sprintf("La duración mínima es %d min", models.MinDuration))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
