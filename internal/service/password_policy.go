package service

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"go-identity-service/pkg/apierror"
)

// PasswordPolicy is enforced at registration and password-change time only;
// credential verification checks match, never policy.
type PasswordPolicy struct {
	MinLength     int
	RequireDigit  bool
	RequireUpper  bool
	RequireLower  bool
	RequireSymbol bool
}

func (p PasswordPolicy) Validate(password string) error {
	failures := make([]string, 0)

	if len(password) < p.MinLength {
		failures = append(failures, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}

	var hasDigit, hasUpper, hasLower, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		default:
			hasSymbol = true
		}
	}

	if p.RequireDigit && !hasDigit {
		failures = append(failures, "must contain a digit")
	}
	if p.RequireUpper && !hasUpper {
		failures = append(failures, "must contain an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		failures = append(failures, "must contain a lowercase letter")
	}
	if p.RequireSymbol && !hasSymbol {
		failures = append(failures, "must contain a symbol")
	}

	if len(failures) > 0 {
		return apierror.New("WEAK_PASSWORD",
			"Password "+strings.Join(failures, "; "), "", http.StatusBadRequest)
	}
	return nil
}
