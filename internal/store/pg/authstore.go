package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"loadtracker.app/internal/auth"
	"loadtracker.app/internal/ids"
)

const userColumns = `
	u.id, u.email, u.password_hash, u.full_name, coalesce(u.phone, ''),
	u.status, u.role_id, r.name, u.client_ids, u.created_at, u.updated_at`

func scanUser(row interface{ Scan(...any) error }) (auth.User, error) {
	var (
		user       auth.User
		rawClients []byte
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Phone, &user.Status, &user.RoleID, &user.RoleName,
		&rawClients, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return auth.User{}, err
	}
	user.ClientIDs, err = decodeStrings(rawClients)
	if err != nil {
		return auth.User{}, fmt.Errorf("decode client_ids: %w", err)
	}
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, nu auth.NewUser) (auth.User, error) {
	clients, err := encodeStrings(nu.ClientIDs)
	if err != nil {
		return auth.User{}, err
	}
	id := ids.New()
	_, err = s.db.ExecContext(ctx, `
		insert into users (id, email, password_hash, full_name, phone, status, role_id, client_ids)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, nu.Email, nu.PasswordHash, nu.FullName, nullIfEmpty(nu.Phone), nu.Status, nu.RoleID, clients)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.User{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.User{}, auth.ErrNotFound
			}
		}
		return auth.User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users u
		join roles r on r.id = u.role_id
		where u.id = $1
	`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	return user, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users u
		join roles r on r.id = u.role_id
		where lower(u.email) = lower($1)
	`, email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	return user, err
}

func (s *Store) ListUsers(ctx context.Context, page auth.Page) ([]auth.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+`
		from users u
		join roles r on r.id = u.role_id
		order by u.email
		limit $1 offset $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.FullName != nil {
		sets = append(sets, fmt.Sprintf("full_name = $%d", idx))
		args = append(args, *upd.FullName)
		idx++
	}
	if upd.Phone != nil {
		sets = append(sets, fmt.Sprintf("phone = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Phone))
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if upd.RoleID != nil {
		sets = append(sets, fmt.Sprintf("role_id = $%d", idx))
		args = append(args, *upd.RoleID)
		idx++
	}
	if upd.ClientIDs != nil {
		clients, err := encodeStrings(upd.ClientIDs)
		if err != nil {
			return auth.User{}, err
		}
		sets = append(sets, fmt.Sprintf("client_ids = $%d", idx))
		args = append(args, clients)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok {
				switch pgErr.Code {
				case pgErrUniqueViolation:
					return auth.User{}, auth.ErrConflict
				case pgErrForeignKeyViolation:
					return auth.User{}, auth.ErrNotFound
				}
			}
			return auth.User{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return auth.User{}, err
		}
		if aff == 0 {
			return auth.User{}, auth.ErrNotFound
		}
	}
	return s.GetUser(ctx, id)
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set password_hash = $2, updated_at = now() where id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set status = $2, updated_at = now() where id = $1
	`, id, auth.UserStatusInactive)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRole(ctx context.Context, name, description string, isActive bool, permissions []string) (auth.Role, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

	id := ids.New()
	if _, err := tx.ExecContext(ctx, `
		insert into roles (id, name, description, is_active)
		values ($1, $2, $3, $4)
	`, id, name, nullIfEmpty(description), isActive); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.Role{}, auth.ErrConflict
		}
		return auth.Role{}, err
	}
	if err := replacePermissions(ctx, tx, id, permissions); err != nil {
		return auth.Role{}, err
	}
	if err := tx.Commit(); err != nil {
		return auth.Role{}, err
	}
	return s.GetRole(ctx, id)
}

func (s *Store) GetRole(ctx context.Context, id string) (auth.Role, error) {
	var (
		role auth.Role
		desc sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, description, is_active, created_at, updated_at
		from roles
		where id = $1
	`, id).Scan(&role.ID, &role.Name, &desc, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	if desc.Valid {
		role.Description = desc.String
	}

	role.Permissions, err = s.rolePermissionKeys(ctx, id)
	if err != nil {
		return auth.Role{}, err
	}
	if err := s.db.QueryRowContext(ctx, `
		select count(*) from users where role_id = $1
	`, id).Scan(&role.UserCount); err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, is_active, created_at, updated_at
		from roles
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	byID := map[string]int{}
	for rows.Next() {
		var (
			role auth.Role
			desc sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &desc, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			role.Description = desc.String
		}
		role.Permissions = []string{}
		byID[role.ID] = len(roles)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	permRows, err := s.db.QueryContext(ctx, `
		select rp.role_id, p.key
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		order by p.key
	`)
	if err != nil {
		return nil, err
	}
	defer permRows.Close()
	for permRows.Next() {
		var roleID, key string
		if err := permRows.Scan(&roleID, &key); err != nil {
			return nil, err
		}
		if i, ok := byID[roleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, key)
		}
	}
	if err := permRows.Err(); err != nil {
		return nil, err
	}

	countRows, err := s.db.QueryContext(ctx, `
		select role_id, count(*) from users group by role_id
	`)
	if err != nil {
		return nil, err
	}
	defer countRows.Close()
	for countRows.Next() {
		var (
			roleID string
			count  int
		)
		if err := countRows.Scan(&roleID, &count); err != nil {
			return nil, err
		}
		if i, ok := byID[roleID]; ok {
			roles[i].UserCount = count
		}
	}
	if err := countRows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Store) UpdateRole(ctx context.Context, id string, upd auth.RoleUpdate) (auth.Role, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

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
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *upd.IsActive)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update roles set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return auth.Role{}, auth.ErrConflict
			}
			return auth.Role{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return auth.Role{}, err
		}
		if aff == 0 {
			return auth.Role{}, auth.ErrNotFound
		}
	} else {
		var exists int
		if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1`, id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return auth.Role{}, auth.ErrNotFound
			}
			return auth.Role{}, err
		}
	}
	if upd.Permissions != nil {
		if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, id); err != nil {
			return auth.Role{}, err
		}
		if err := replacePermissions(ctx, tx, id, upd.Permissions); err != nil {
			return auth.Role{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return auth.Role{}, err
	}
	return s.GetRole(ctx, id)
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var inUse int
	if err := tx.QueryRowContext(ctx, `select count(*) from users where role_id = $1`, id).Scan(&inUse); err != nil {
		return err
	}
	if inUse > 0 {
		return auth.ErrConflict
	}
	res, err := tx.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return auth.ErrConflict
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) RolePermissions(ctx context.Context, roleName string) ([]string, error) {
	var (
		roleID   string
		isActive bool
	)
	err := s.db.QueryRowContext(ctx, `
		select id, is_active from roles where name = $1
	`, roleName).Scan(&roleID, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isActive {
		return nil, nil
	}
	return s.rolePermissionKeys(ctx, roleID)
}

func (s *Store) rolePermissionKeys(ctx context.Context, roleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.key
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		where rp.role_id = $1
		order by p.key
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// replacePermissions inserts the given keys for a role; unknown keys abort
// the transaction.
func replacePermissions(ctx context.Context, tx *sql.Tx, roleID string, keys []string) error {
	for _, key := range keys {
		var permID string
		err := tx.QueryRowContext(ctx, `select id from permissions where key = $1`, key).Scan(&permID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: permission %s", auth.ErrNotFound, key)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			values ($1, $2)
			on conflict do nothing
		`, roleID, permID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) EnsurePermissions(ctx context.Context, perms []auth.Permission) error {
	for _, perm := range perms {
		if _, err := s.db.ExecContext(ctx, `
			insert into permissions (id, key, description, category)
			values ($1, $2, $3, $4)
			on conflict (key) do update
			set description = excluded.description, category = excluded.category
		`, ids.New(), perm.Key, nullIfEmpty(perm.Description), perm.Category); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]auth.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, key, coalesce(description, ''), category
		from permissions
		order by category, key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []auth.Permission
	for rows.Next() {
		var perm auth.Permission
		if err := rows.Scan(&perm.ID, &perm.Key, &perm.Description, &perm.Category); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

func (s *Store) ListApps(ctx context.Context) ([]auth.App, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, url, is_active from apps order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []auth.App
	for rows.Next() {
		var app auth.App
		if err := rows.Scan(&app.ID, &app.Name, &app.URL, &app.IsActive); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

const grantColumns = `
	g.id, g.user_id, g.app_id, a.name, g.granted_by, g.granted_at, g.expires_at, g.is_active`

func scanGrant(row interface{ Scan(...any) error }) (auth.AppGrant, error) {
	var (
		grant   auth.AppGrant
		expires sql.NullTime
	)
	err := row.Scan(&grant.ID, &grant.UserID, &grant.AppID, &grant.AppName,
		&grant.GrantedBy, &grant.GrantedAt, &expires, &grant.IsActive)
	if err != nil {
		return auth.AppGrant{}, err
	}
	if expires.Valid {
		t := expires.Time
		grant.ExpiresAt = &t
	}
	return grant, nil
}

func (s *Store) CreateGrant(ctx context.Context, ng auth.NewGrant) (auth.AppGrant, error) {
	id := ids.New()
	_, err := s.db.ExecContext(ctx, `
		insert into app_grants (id, user_id, app_id, granted_by, expires_at, is_active)
		values ($1, $2, $3, $4, $5, true)
	`, id, ng.UserID, ng.AppID, ng.GrantedBy, nullTime(ng.ExpiresAt))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.AppGrant{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.AppGrant{}, auth.ErrNotFound
			}
		}
		return auth.AppGrant{}, err
	}
	return s.grantByID(ctx, id)
}

func (s *Store) ListGrants(ctx context.Context, userID string) ([]auth.AppGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+grantColumns+`
		from app_grants g
		join apps a on a.id = g.app_id
		where g.user_id = $1
		order by g.granted_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []auth.AppGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

func (s *Store) UpdateGrant(ctx context.Context, id string, upd auth.GrantUpdate) (auth.AppGrant, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *upd.IsActive)
		idx++
	}
	switch {
	case upd.ClearExpiry:
		sets = append(sets, "expires_at = NULL")
	case upd.ExpiresAt != nil:
		sets = append(sets, fmt.Sprintf("expires_at = $%d", idx))
		args = append(args, *upd.ExpiresAt)
		idx++
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update app_grants set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return auth.AppGrant{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return auth.AppGrant{}, err
		}
		if aff == 0 {
			return auth.AppGrant{}, auth.ErrNotFound
		}
	}
	return s.grantByID(ctx, id)
}

func (s *Store) DeleteGrant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from app_grants where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) AppsForUser(ctx context.Context, userID string, now time.Time) ([]auth.App, error) {
	rows, err := s.db.QueryContext(ctx, `
		select a.id, a.name, a.url, a.is_active
		from app_grants g
		join apps a on a.id = g.app_id
		where g.user_id = $1
		  and g.is_active
		  and a.is_active
		  and (g.expires_at is null or g.expires_at >= $2)
		order by a.name
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []auth.App
	for rows.Next() {
		var app auth.App
		if err := rows.Scan(&app.ID, &app.Name, &app.URL, &app.IsActive); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (s *Store) grantByID(ctx context.Context, id string) (auth.AppGrant, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+grantColumns+`
		from app_grants g
		join apps a on a.id = g.app_id
		where g.id = $1
	`, id)
	grant, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.AppGrant{}, auth.ErrNotFound
	}
	return grant, err
}
