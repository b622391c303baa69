package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	StatusCompleted  Status = "Completed"
	StatusInProgress Status = "InProgress"
	StatusPending    Status = "Pending"
	StatusDelayed    Status = "Delayed"
	StatusCancelled  Status = "Cancelled"
)

type (
	// Status is the closed set of delivery states.
	Status string

	// ProjectRecord is one tracked delivery of a secretariat.
	ProjectRecord struct {
		ID                  string  `json:"id" validate:"required"`
		IDM                 string  `json:"idm"`
		IDE                 string  `json:"ide" validate:"required"`
		Name                string  `json:"name" validate:"required"`
		Status              Status  `json:"status" validate:"status"`
		ExecutionPercentage float64 `json:"execution_percentage"`
		OrganizationalUnit  string  `json:"organizational_unit" validate:"required"`
		Sector              string  `json:"sector,omitempty"`
		ContactPerson       string  `json:"contact_person,omitempty"`
		Secretariat         string  `json:"secretariat" validate:"required"`
	}
)

var (
	ErrEmptyName     = errors.New("empty delivery name")
	ErrEmptyIDE      = errors.New("empty delivery code (IDE)")
	ErrEmptyUnit     = errors.New("empty organizational unit")
	ErrInvalidStatus = errors.New("invalid status")
)

var statusLabels = map[Status]string{
	StatusCompleted:  "Concluído",
	StatusInProgress: "Em Andamento",
	StatusPending:    "Pendente",
	StatusDelayed:    "Atrasado",
	StatusCancelled:  "Cancelado",
}

// AllStatuses returns every status in the canonical distribution order.
func AllStatuses() []Status {
	return []Status{StatusCompleted, StatusInProgress, StatusDelayed, StatusPending, StatusCancelled}
}

// IsValid reports whether s is one of the five known statuses.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the Portuguese label shown to users.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) String() string {
	return string(s)
}

// RecordID derives the composite identifier of a delivery.
func RecordID(idm, ide string) string {
	return idm + "-" + ide
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
			return Status(fl.Field().String()).IsValid()
		})
		validate = v
	})
	return validate
}

// Validate checks the record invariants. ExecutionPercentage is not range checked:
// source sheets carry values above 100 and those are kept as-is.
func (r ProjectRecord) Validate() error {
	err := recordValidator().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			return ErrEmptyName
		case "IDE":
			return ErrEmptyIDE
		case "OrganizationalUnit":
			return ErrEmptyUnit
		case "Status":
			return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
		}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("invalid record %q: missing %s", r.ID, strings.Join(fields, ","))
}
