package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// signupEmailRE is the loose shape accepted at signup.
var signupEmailRE = regexp.MustCompile(`(?i)(.+)@(.+)\.(.+)`)

func required(field, v string) string {
	if strings.TrimSpace(v) == "" {
		return fmt.Sprintf("The %s field is required.", field)
	}
	return ""
}

func maxLen(field, v string, n int) string {
	if utf8.RuneCountInString(v) > n {
		return fmt.Sprintf("The %s may not be greater than %d characters.", field, n)
	}
	return ""
}

func minLen(field, v string, n int) string {
	if utf8.RuneCountInString(v) < n {
		return fmt.Sprintf("The %s must be at least %d characters.", field, n)
	}
	return ""
}

// isEmail accepts a bare address, without display name.
func isEmail(v string) bool {
	a, err := mail.ParseAddress(v)
	return err == nil && a.Address == v && a.Name == ""
}

// firstOf returns the first non-empty message.
func firstOf(msgs ...string) string {
	for _, m := range msgs {
		if m != "" {
			return m
		}
	}
	return ""
}

func validateLogin(in PasswordLogin) string {
	if m := firstOf(
		required("email", in.Email),
		maxLen("email", in.Email, 255),
		required("password", in.Password),
		minLen("password", in.Password, 8),
	); m != "" {
		return m
	}
	if !isEmail(in.Email) {
		return "The email field is only can email"
	}
	return ""
}

func validateSignup(in SignupRequest) string {
	m := firstOf(
		required("user name", in.UserName),
		required("email", in.Email),
		required("password", in.Password),
	)
	if m != "" {
		return m
	}
	if !signupEmailRE.MatchString(in.Email) {
		return "The email format is invalid."
	}
	return ""
}

func validateSocial(provider string, in SocialLogin) string {
	switch provider {
	case "apple":
		return firstOf(required("token", in.Token), required("source", in.Source))
	case "google", "facebook":
		return firstOf(required("id", in.ID), required("name", in.Name), required("token", in.Token))
	default:
		return firstOf(required("id", in.ID), required("name", in.Name))
	}
}
