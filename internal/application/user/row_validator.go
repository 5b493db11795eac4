package user

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

const roleTag = "user_role"

type rowFields struct {
	Username string `col:"username" validate:"required"`
	Email    string `col:"email" validate:"required"`
	Password string `col:"password" validate:"required"`
	Role     string `col:"role" validate:"required,user_role"`
}

// RowValidator turns one raw spreadsheet row into a canonical user or a
// rejection wrapping domain.ErrMissingRequiredField / domain.ErrInvalidRole.
// It is safe for concurrent use.
type RowValidator struct {
	validate *validator.Validate
}

func NewRowValidator() *RowValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("col")
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseRole(fl.Field().String())
		return ok
	})
	return &RowValidator{validate: v}
}

func (v *RowValidator) Validate(row domain.RawRow) (domain.CanonicalUser, error) {
	fields := rowFields{
		Username: strings.TrimSpace(row.Cells["username"]),
		Email:    strings.TrimSpace(row.Cells["email"]),
		Password: strings.TrimSpace(row.Cells["password"]),
		Role:     strings.ToLower(strings.TrimSpace(row.Cells["role"])),
	}

	if err := v.validate.Struct(fields); err != nil {
		return domain.CanonicalUser{}, rejection(err, row)
	}

	return domain.CanonicalUser{
		Username: fields.Username,
		Email:    fields.Email,
		Password: fields.Password,
		Role:     domain.Role(fields.Role),
	}, nil
}

func rejection(err error, row domain.RawRow) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingRequiredField, strings.Join(missing, ", "))
	}

	return fmt.Errorf("%w: %q must be one of %s", domain.ErrInvalidRole, row.Cells["role"], roleList())
}

func roleList() string {
	names := make([]string, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		names = append(names, role.String())
	}
	return strings.Join(names, ", ")
}

func rejectionKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingRequiredField):
		return "missing_required_field"
	case errors.Is(err, domain.ErrInvalidRole):
		return "invalid_role"
	default:
		return "hash_error"
	}
}
