package directory

import (
	"context"
	"strings"
)

type StoreAPI interface {
	ListAll(ctx context.Context) ([]Employee, error)
	ListCandidates(ctx context.Context, excluding string) ([]Employee, error)
	FindByEmail(ctx context.Context, email string) (Employee, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (Employee, error)
	Count(ctx context.Context) (int, error)
	ReplaceAll(ctx context.Context, employees []Employee) (ReplaceResult, error)
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) ListAll(ctx context.Context) ([]Employee, error) {
	return s.store.ListAll(ctx)
}

// ListCandidates returns every employee except the voter, ordered by employee
// id so repeated calls over unchanged data agree.
func (s *Service) ListCandidates(ctx context.Context, excluding string) ([]Employee, error) {
	return s.store.ListCandidates(ctx, excluding)
}

// Search is ListCandidates followed by Filter.
func (s *Service) Search(ctx context.Context, excluding, query string) ([]Employee, error) {
	candidates, err := s.store.ListCandidates(ctx, excluding)
	if err != nil {
		return nil, err
	}
	return Filter(candidates, query), nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (Employee, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Employee{}, ErrEmployeeNotFound
	}
	return s.store.FindByEmail(ctx, email)
}

func (s *Service) FindByEmployeeID(ctx context.Context, employeeID string) (Employee, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return Employee{}, ErrEmployeeNotFound
	}
	return s.store.FindByEmployeeID(ctx, employeeID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) ReplaceAll(ctx context.Context, employees []Employee) (ReplaceResult, error) {
	return s.store.ReplaceAll(ctx, employees)
}
