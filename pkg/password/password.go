package password

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultMinLength = 8
	DefaultCost      = 12

	StrengthWeak   = "weak"
	StrengthMedium = "medium"
	StrengthStrong = "strong"
)

// Validation is the outcome of a policy check. Strength is reported even
// when the password is rejected, so the UI can render the meter alongside
// the error.
type Validation struct {
	IsValid  bool   `json:"is_valid"`
	Message  string `json:"message"`
	Strength string `json:"strength"`
}

// Policy holds the password acceptance rules.
type Policy struct {
	MinLength int
}

func DefaultPolicy() Policy {
	return Policy{MinLength: DefaultMinLength}
}

// Validate checks a candidate password against the policy. Rules are checked
// in a fixed order and the first violation wins: length, uppercase,
// lowercase, digit, special character. Messages are user-facing.
func (p Policy) Validate(password string) Validation {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = DefaultMinLength
	}

	if len(password) < minLen {
		return Validation{
			IsValid:  false,
			Message:  fmt.Sprintf("La contraseña debe tener al menos %d caracteres", minLen),
			Strength: StrengthWeak,
		}
	}

	hasUpper, hasLower, hasDigit, hasSpecial := classify(password)
	strength := strengthLabel(scorePassword(len(password) >= minLen, hasUpper, hasLower, hasDigit, hasSpecial))

	if !hasUpper {
		return Validation{
			IsValid:  false,
			Message:  "La contraseña debe contener al menos una letra mayúscula",
			Strength: strength,
		}
	}
	if !hasLower {
		return Validation{
			IsValid:  false,
			Message:  "La contraseña debe contener al menos una letra minúscula",
			Strength: strength,
		}
	}
	if !hasDigit {
		return Validation{
			IsValid:  false,
			Message:  "La contraseña debe contener al menos un número",
			Strength: strength,
		}
	}
	if !hasSpecial {
		return Validation{
			IsValid:  false,
			Message:  "La contraseña debe contener al menos un carácter especial",
			Strength: strength,
		}
	}

	// All four classes present on a long-enough password means every score
	// point was awarded.
	return Validation{
		IsValid:  true,
		Message:  "Contraseña válida",
		Strength: StrengthStrong,
	}
}

func classify(password string) (hasUpper, hasLower, hasDigit, hasSpecial bool) {
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	return
}

// scorePassword awards one point per satisfied criterion, 0-5.
func scorePassword(longEnough, hasUpper, hasLower, hasDigit, hasSpecial bool) int {
	score := 0
	for _, ok := range []bool{longEnough, hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			score++
		}
	}
	return score
}

func strengthLabel(score int) string {
	switch {
	case score < 3:
		return StrengthWeak
	case score < 5:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}

// Hash derives a bcrypt hash at the given cost.
func Hash(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Compare checks a plaintext password against a stored bcrypt hash in
// constant time.
func Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
