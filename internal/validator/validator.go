package validator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tmakar/linkshort/internal/errors"
)

const (
	maxURLLength  = 2048
	minCodeLength = 6
	maxCodeLength = 8
)

// ValidateTargetURL checks that rawURL is a well-formed absolute http/https
// URL no longer than 2048 characters.
func ValidateTargetURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: targetUrl is required", errors.ErrInvalidURL)
	}

	if len(rawURL) > maxURLLength {
		return fmt.Errorf("%w: targetUrl exceeds maximum length of %d characters", errors.ErrInvalidURL, maxURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: targetUrl could not be parsed", errors.ErrInvalidURL)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: targetUrl must use http or https scheme", errors.ErrInvalidURL)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%w: targetUrl must have a host", errors.ErrInvalidURL)
	}

	return nil
}

// ValidateCode checks code format: 6-8 characters, alphanumeric only.
// The messages distinguish too-short, too-long and bad characters, but the
// error kind is uniformly errors.ErrInvalidCode.
func ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: code is required", errors.ErrInvalidCode)
	}

	if len(code) < minCodeLength {
		return fmt.Errorf("%w: code is too short (minimum %d characters)", errors.ErrInvalidCode, minCodeLength)
	}
	if len(code) > maxCodeLength {
		return fmt.Errorf("%w: code is too long (maximum %d characters)", errors.ErrInvalidCode, maxCodeLength)
	}

	for _, char := range code {
		if !isAlphanumeric(char) {
			return fmt.Errorf("%w: code may only contain letters and digits", errors.ErrInvalidCode)
		}
	}

	return nil
}

// ValidateCreateRequest validates the inputs of a create request. The target
// URL is always checked; the custom code only when supplied, since absence
// means the service will generate one.
func ValidateCreateRequest(targetURL, customCode string) error {
	if err := ValidateTargetURL(targetURL); err != nil {
		return err
	}
	if customCode != "" {
		return ValidateCode(customCode)
	}
	return nil
}

func isAlphanumeric(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9')
}
