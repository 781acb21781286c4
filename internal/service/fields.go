package service

import (
	"net/mail"
	"strings"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
)

// ProfileFields are the user-editable account fields. A nil field is left
// unchanged.
type ProfileFields struct {
	Name    *string
	Email   *string
	Phone   *string
	Gender  *string
	Address *string
}

// normalizeEmail lower-cases and trims an email and checks its syntax.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}

// normalizeGender accepts "", Male and Female in any case.
func normalizeGender(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "male":
		return model.GenderMale, nil
	case "female":
		return model.GenderFemale, nil
	}
	return "", apperror.ValidationFailed("gender", "gender must be Male or Female")
}

// apply validates f and copies the set fields onto u.
func (f ProfileFields) apply(u *model.User) error {
	if f.Name != nil {
		name := strings.TrimSpace(*f.Name)
		if name == "" {
			return apperror.ValidationFailed("name", "name must not be empty")
		}
		u.Name = name
	}
	if f.Email != nil {
		email, err := normalizeEmail(*f.Email)
		if err != nil {
			return err
		}
		u.Email = email
	}
	if f.Phone != nil {
		u.Phone = strings.TrimSpace(*f.Phone)
	}
	if f.Gender != nil {
		gender, err := normalizeGender(*f.Gender)
		if err != nil {
			return err
		}
		u.Gender = gender
	}
	if f.Address != nil {
		u.Address = strings.TrimSpace(*f.Address)
	}
	return nil
}
