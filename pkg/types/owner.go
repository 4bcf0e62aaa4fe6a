package types

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/concepts/internal/errors"
)

// OwnerInfo is a registry record: where an owner can be queried. It shares
// the concept id space but lives in its own keyspace.
type OwnerInfo struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Name     string `json:"name" yaml:"name" validate:"required"`
	Endpoint string `json:"endpoint" yaml:"endpoint" validate:"required,url"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks required fields and that Endpoint is a URL. Failures wrap
// ErrInvalidArgument.
func (o OwnerInfo) Validate() error {
	if err := Validator().Struct(o); err != nil {
		return errors.Mark(errors.Wrap(err, "owner info"), ErrInvalidArgument)
	}
	return nil
}
