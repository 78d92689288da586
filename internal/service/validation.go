package service

import (
	"strings"
	"unicode/utf8"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
)

func requiredText(value string, maxLen int, missing error) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", missing
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", domain.ErrNameTooLong
	}
	return value, nil
}

// truncateRunes cuts value to at most maxLen characters
func truncateRunes(value string, maxLen int) string {
	if utf8.RuneCountInString(value) <= maxLen {
		return value
	}
	return string([]rune(value)[:maxLen])
}

// oneOf returns value, or fallback when value is empty, and checks it against valid
func oneOf[T ~string](value, fallback T, valid map[T]bool, invalid error) (T, error) {
	if value == "" {
		value = fallback
	}
	if !valid[value] {
		return "", invalid
	}
	return value, nil
}

func cleanEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
