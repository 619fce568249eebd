package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"ideavote/internal/domain/directory"
)

type EmployeeFinder interface {
	FindByEmail(ctx context.Context, email string) (directory.Employee, error)
}

// Resolver maps a claimed email to a known employee. The domain allow-list is
// checked before the directory so wrong-domain and unregistered emails are
// reported differently.
type Resolver struct {
	finder  EmployeeFinder
	domains []string
}

func NewResolver(finder EmployeeFinder, allowedDomains []string) *Resolver {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &Resolver{finder: finder, domains: domains}
}

func (r *Resolver) ResolveEmail(ctx context.Context, email string) (directory.Employee, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return directory.Employee{}, err
	}
	if !r.DomainAllowed(email) {
		return directory.Employee{}, ErrAccessDenied
	}
	emp, err := r.finder.FindByEmail(ctx, email)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		return directory.Employee{}, ErrIdentityNotFound
	}
	if err != nil {
		return directory.Employee{}, fmt.Errorf("resolve employee: %w", err)
	}
	return emp, nil
}

// DomainAllowed reports whether email belongs to an allowed domain. An empty
// allow-list admits every domain.
func (r *Resolver) DomainAllowed(email string) bool {
	if len(r.domains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range r.domains {
		if domain == allowed {
			return true
		}
	}
	return false
}

func NormalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", ErrInvalidEmail
	}
	return raw, nil
}
