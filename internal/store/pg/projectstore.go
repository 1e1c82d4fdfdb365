package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"loadtracker.app/internal/ids"
	"loadtracker.app/internal/project"
)

const projectColumns = `
	id, name, client, coalesce(description, ''), status, start_date, due_date,
	created_by, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (project.Project, error) {
	var (
		p     project.Project
		start sql.NullTime
		due   sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Client, &p.Description, &p.Status,
		&start, &due, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return project.Project{}, err
	}
	if start.Valid {
		t := start.Time
		p.StartDate = &t
	}
	if due.Valid {
		t := due.Time
		p.DueDate = &t
	}
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	p.ID = ids.New()
	_, err := s.db.ExecContext(ctx, `
		insert into projects (id, name, client, description, status, start_date, due_date, created_by, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.Name, p.Client, nullIfEmpty(p.Description), p.Status,
		nullTime(p.StartDate), nullTime(p.DueDate), p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return project.Project{}, err
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+projectColumns+` from projects where id = $1
	`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, project.ErrNotFound
	}
	return p, err
}

func (s *Store) ListProjects(ctx context.Context, page project.Page) ([]project.Project, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from projects`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+projectColumns+`
		from projects
		order by created_at desc, id
		limit $1 offset $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, upd project.Update) (project.Project, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Client != nil {
		sets = append(sets, fmt.Sprintf("client = $%d", idx))
		args = append(args, *upd.Client)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if upd.StartDate != nil {
		sets = append(sets, fmt.Sprintf("start_date = $%d", idx))
		args = append(args, *upd.StartDate)
		idx++
	}
	if upd.DueDate != nil {
		sets = append(sets, fmt.Sprintf("due_date = $%d", idx))
		args = append(args, *upd.DueDate)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update projects set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return project.Project{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return project.Project{}, err
		}
		if aff == 0 {
			return project.Project{}, project.ErrNotFound
		}
	}
	return s.GetProject(ctx, id)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from projects where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return project.ErrNotFound
	}
	return nil
}
