package services

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// slugPattern allows lowercase letters, digits, '.', '_' and '-',
// starting with a letter or digit.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,127}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func documentValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		//nolint:errcheck // tag name is a constant
		validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// validSlug reports whether s can identify a document.
func validSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// checkSlug rejects a slug argument that no stored document could have.
func checkSlug(slug string) error {
	if !validSlug(slug) {
		return fmt.Errorf("%w: invalid slug %q", domain.ErrInvalidInput, slug)
	}
	return nil
}

// ValidateDocument checks a candidate document. Failures are reported as
// domain.ErrInvalidInput listing each offending field.
func ValidateDocument(doc domain.Document) error {
	problems := make(map[string]string)

	if err := documentValidator().Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		for _, e := range verrs {
			problems[e.Namespace()] = fmt.Sprintf("failed on '%s'", e.Tag())
		}
	}

	for key, p := range doc.Points {
		if key != p.Theme {
			problems[fmt.Sprintf("Document.Points[%s].Theme", key)] = fmt.Sprintf("does not match key (got %q)", p.Theme)
		}
	}

	if len(problems) == 0 {
		return nil
	}

	fields := make([]string, 0, len(problems))
	for field := range problems {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+problems[field])
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(parts, "; "))
}

// requireActor checks the author and reason every mutation must carry.
func requireActor(author, reason string) error {
	if strings.TrimSpace(author) == "" {
		return fmt.Errorf("%w: author is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: reason is required", domain.ErrInvalidInput)
	}
	return nil
}
