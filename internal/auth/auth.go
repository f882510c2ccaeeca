// Package auth implements the token protocol: a per-deployment shared
// password is exchanged once over Basic auth for a short-lived bearer
// token signed with a process-lifetime secret. Restarting the server
// invalidates all issued tokens, which is intended.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Version is the fixed API version every request path must carry.
const Version = "v1"

const secretLen = 48

// Scheme reports which authorization scheme a request presented.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeBasic
	SchemeBearer
	// SchemeAny marks an implicitly authorized request (no password
	// configured); it satisfies both basic-only and bearer-only endpoints.
	SchemeAny
)

// Service verifies credentials and issues bearer tokens.
type Service struct {
	password string
	secret   []byte
}

func NewService(password string) (*Service, error) {
	secret := make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing secret: %w", err)
	}
	return &Service{password: password, secret: secret}, nil
}

// CheckVersion gates every endpoint on the fixed API version.
func (s *Service) CheckVersion(version string) error {
	if version != Version {
		return ErrVersionMismatch
	}
	return nil
}

// Authenticate resolves the subject identity of a request from its
// Authorization header.
//
// With a password configured, Basic yields a fresh anonymous subject
// usable only to request a token, and Bearer yields the subject the
// token was issued for. With no password, every request is implicitly
// authorized: a valid bearer token is still honored so clients keep a
// stable identity, anything else gets a fresh anonymous subject.
func (s *Service) Authenticate(header string) (string, Scheme, error) {
	if s.password == "" {
		if strings.HasPrefix(header, "Bearer ") {
			if subject, err := s.verifyBearer(strings.TrimPrefix(header, "Bearer ")); err == nil {
				return subject, SchemeBearer, nil
			}
		}
		return uuid.NewString(), SchemeAny, nil
	}

	switch {
	case header == "":
		return "", SchemeNone, ErrRequired
	case strings.HasPrefix(header, "Basic "):
		if err := s.verifyBasic(strings.TrimPrefix(header, "Basic ")); err != nil {
			return "", SchemeNone, err
		}
		return uuid.NewString(), SchemeBasic, nil
	case strings.HasPrefix(header, "Bearer "):
		subject, err := s.verifyBearer(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return "", SchemeNone, err
		}
		return subject, SchemeBearer, nil
	default:
		return "", SchemeNone, ErrUnsupported
	}
}

func (s *Service) verifyBasic(encoded string) error {
	provided, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return ErrInvalid
	}
	if string(provided) != s.password {
		return ErrInvalid
	}
	return nil
}

func (s *Service) verifyBearer(credential string) (string, error) {
	token, signature, ok := strings.Cut(credential, ".")
	if !ok || token == "" || signature == "" {
		return "", ErrBearerMalformed
	}
	if !hmac.Equal([]byte(signature), []byte(s.sign(token))) {
		return "", ErrInvalid
	}
	subject, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalid
	}
	return string(subject), nil
}

// IssueToken returns the header value binding subject to this process:
// base64url(subject) + "." + base64url(HMAC-SHA256(secret, token)).
func (s *Service) IssueToken(subject string) string {
	token := base64.RawURLEncoding.EncodeToString([]byte(subject))
	return token + "." + s.sign(token)
}

func (s *Service) sign(token string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
