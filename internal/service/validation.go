package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validUsername(s string) bool {
	if len(s) < 3 || len(s) > 24 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

func checkPassword(p string) string {
	switch {
	case len(p) < minPasswordLen:
		return "must be at least 8 characters"
	case len(p) > maxPasswordLen:
		return "must be 128 characters or less"
	}
	return ""
}

func checkDisplayName(s string) string {
	if utf8.RuneCountInString(s) > 48 {
		return "must be 48 characters or less"
	}
	for _, r := range s {
		if r < 32 {
			return "contains invalid characters"
		}
	}
	return ""
}
