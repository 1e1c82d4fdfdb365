// Package project implements tracking of loading/storage projects.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("project: invalid input")
	ErrNotFound     = errors.New("project: not found")
	ErrConflict     = errors.New("project: resource conflict")
)

const (
	StatusPlanned   = "planned"
	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusCompleted = "completed"
)

// Project is a tracked engagement tying inventory movements to a client.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Client      string     `json:"client"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// New carries validated input for project creation.
type New struct {
	Name        string
	Client      string
	Description string
	Status      string
	StartDate   *time.Time
	DueDate     *time.Time
	CreatedBy   string
}

// Update applies partial changes; nil fields are left untouched.
type Update struct {
	Name        *string
	Client      *string
	Description *string
	Status      *string
	StartDate   *time.Time
	DueDate     *time.Time
}

// Page is a limit/offset window for listings.
type Page struct {
	Number int
	Size   int
}

// Offset converts the page window to a SQL offset.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Store describes the persistence operations the service needs.
type Store interface {
	CreateProject(ctx context.Context, p Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context, page Page) ([]Project, int, error)
	UpdateProject(ctx context.Context, id string, upd Update) (Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// Service validates project operations before hitting the store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs the project service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("project: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Create records a new project.
func (s *Service) Create(ctx context.Context, in New) (Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Project{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	in.Client = strings.TrimSpace(in.Client)
	if in.Client == "" {
		return Project{}, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	status, err := normalizeStatus(in.Status, StatusPlanned)
	if err != nil {
		return Project{}, err
	}
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		return Project{}, fmt.Errorf("%w: due_date precedes start_date", ErrInvalidInput)
	}

	now := s.now().UTC()
	return s.store.CreateProject(ctx, Project{
		Name:        in.Name,
		Client:      in.Client,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		CreatedBy:   strings.TrimSpace(in.CreatedBy),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Get returns a single project.
func (s *Service) Get(ctx context.Context, id string) (Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Project{}, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	return s.store.GetProject(ctx, id)
}

// List returns a page of projects plus the total count.
func (s *Service) List(ctx context.Context, page Page) ([]Project, int, error) {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = 20
	}
	if page.Size > 100 {
		page.Size = 100
	}
	return s.store.ListProjects(ctx, page)
}

// Update applies a partial update after validating the changed fields.
func (s *Service) Update(ctx context.Context, id string, upd Update) (Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Project{}, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Project{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Client != nil {
		client := strings.TrimSpace(*upd.Client)
		if client == "" {
			return Project{}, fmt.Errorf("%w: client is required", ErrInvalidInput)
		}
		upd.Client = &client
	}
	if upd.Status != nil {
		status, err := normalizeStatus(*upd.Status, "")
		if err != nil {
			return Project{}, err
		}
		upd.Status = &status
	}
	return s.store.UpdateProject(ctx, id, upd)
}

// Delete removes a project record.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	return s.store.DeleteProject(ctx, id)
}

func normalizeStatus(raw, def string) (string, error) {
	status := strings.TrimSpace(strings.ToLower(raw))
	if status == "" {
		if def == "" {
			return "", fmt.Errorf("%w: status is required", ErrInvalidInput)
		}
		return def, nil
	}
	switch status {
	case StatusPlanned, StatusActive, StatusOnHold, StatusCompleted:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
	}
}
