package server

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"careercatalyst/internal/models"
)

const (
	maxNameLength        = 200
	maxShortFieldLength  = 100
	maxDescriptionLength = 10000
	maxRequirements      = 50
)

var (
	accountIDRegex = regexp.MustCompile(`^(in|is|or)-[0-9a-z]{10}$`)
	jobIDRegex     = regexp.MustCompile(`^jb-[0-9a-z]{10}$`)
)

func validateAccountID(kind models.AccountKind, id string) bool {
	return accountIDRegex.MatchString(id) && strings.HasPrefix(id, kind.IDPrefix()+"-")
}

func validateIndividualID(id string) bool {
	return validateAccountID(models.AccountIndividual, id)
}

func validateInstitutionID(id string) bool {
	return validateAccountID(models.AccountInstitution, id)
}

func validateJobID(id string) bool {
	return jobIDRegex.MatchString(id)
}

// requireText trims value and checks it is present and at most max runes.
func requireText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("%s is required", field), ErrCodeMissingRequired)
	}
	return optionalText(field, value, max)
}

func optionalText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > max {
		return "", badRequestCode(fmt.Errorf("%s must be at most %d characters", field, max), ErrCodeInvalidArgument)
	}
	return value, nil
}

func normalizeRequirements(values []string) ([]string, error) {
	if len(values) > maxRequirements {
		return nil, badRequestCode(fmt.Errorf("at most %d requirements are allowed", maxRequirements), ErrCodeInvalidArgument)
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		value, err := optionalText("requirement", value, maxShortFieldLength)
		if err != nil {
			return nil, err
		}
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out, nil
}
