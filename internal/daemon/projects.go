package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// ErrInvalidProject is returned when project input fails validation.
var ErrInvalidProject = errors.New("invalid project")

// ProjectInput carries the writable fields of a project. Nil fields are
// left untouched on update.
type ProjectInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Tags        []string   `json:"tags"`
	Priority    *int       `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
}

func validStatus(s string) bool {
	switch s {
	case model.ProjectActive, model.ProjectPaused, model.ProjectCompleted, model.ProjectArchived:
		return true
	}
	return false
}

func (in ProjectInput) apply(p *model.Project) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidProject)
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidProject, *in.Status)
		}
		p.Status = *in.Status
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	if in.Priority != nil {
		p.Priority = *in.Priority
	}
	if in.Deadline != nil {
		d := *in.Deadline
		p.Deadline = &d
	}
	return nil
}

// CreateProject validates and stores a new project.
func (m *Manager) CreateProject(ctx context.Context, in ProjectInput) (*model.Project, error) {
	if in.Name == nil {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProject)
	}
	p := &model.Project{Status: model.ProjectActive}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := m.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject applies in to an existing project.
func (m *Manager) UpdateProject(ctx context.Context, id string, in ProjectInput) (*model.Project, error) {
	p, err := m.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := m.repo.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject returns one project.
func (m *Manager) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return m.repo.GetProject(ctx, id)
}

// ListProjects returns every project of the current owner.
func (m *Manager) ListProjects(ctx context.Context) ([]model.Project, error) {
	return m.repo.ListProjects(ctx)
}

// DeleteProject removes a project. Its sessions are kept and detached.
func (m *Manager) DeleteProject(ctx context.Context, id string) error {
	return m.repo.DeleteProject(ctx, id)
}

// ProjectSessions lists the sessions assigned to a project.
func (m *Manager) ProjectSessions(ctx context.Context, id string) ([]model.Session, error) {
	if _, err := m.repo.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return m.repo.GetProjectSessions(ctx, id)
}

// AssignSession moves a session into a project. An empty projectID
// detaches it.
func (m *Manager) AssignSession(ctx context.Context, sessionID, projectID string) (*model.Session, error) {
	if projectID != "" {
		if _, err := m.repo.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
	}
	return m.repo.UpdateSession(ctx, sessionID, model.SessionUpdate{ProjectID: &projectID})
}
