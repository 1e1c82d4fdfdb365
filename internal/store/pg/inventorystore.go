package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"loadtracker.app/internal/ids"
	"loadtracker.app/internal/inventory"
)

const itemColumns = `
	id, sku, coalesce(description, ''), quantity, location, coalesce(truck_ref, ''),
	status, checked_in_by, checked_in_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (inventory.Item, error) {
	var item inventory.Item
	err := row.Scan(&item.ID, &item.SKU, &item.Description, &item.Quantity,
		&item.Location, &item.TruckRef, &item.Status, &item.CheckedInBy,
		&item.CheckedInAt, &item.UpdatedAt)
	return item, err
}

func (s *Store) CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	item.ID = ids.New()
	_, err := s.db.ExecContext(ctx, `
		insert into items (id, sku, description, quantity, location, truck_ref, status, checked_in_by, checked_in_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.SKU, nullIfEmpty(item.Description), item.Quantity, item.Location,
		nullIfEmpty(item.TruckRef), item.Status, item.CheckedInBy, item.CheckedInAt, item.UpdatedAt)
	if err != nil {
		return inventory.Item{}, err
	}
	return item, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (inventory.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+itemColumns+` from items where id = $1
	`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Item{}, inventory.ErrNotFound
	}
	return item, err
}

func (s *Store) ListItems(ctx context.Context, page inventory.Page) ([]inventory.Item, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from items`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+itemColumns+`
		from items
		order by checked_in_at desc, id
		limit $1 offset $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) UpdateItem(ctx context.Context, id string, upd inventory.Update) (inventory.Item, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.Quantity != nil {
		sets = append(sets, fmt.Sprintf("quantity = $%d", idx))
		args = append(args, *upd.Quantity)
		idx++
	}
	if upd.Location != nil {
		sets = append(sets, fmt.Sprintf("location = $%d", idx))
		args = append(args, *upd.Location)
		idx++
	}
	if upd.TruckRef != nil {
		sets = append(sets, fmt.Sprintf("truck_ref = $%d", idx))
		args = append(args, nullIfEmpty(*upd.TruckRef))
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update items set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inventory.Item{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return inventory.Item{}, err
		}
		if aff == 0 {
			return inventory.Item{}, inventory.ErrNotFound
		}
	}
	return s.GetItem(ctx, id)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from items where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return inventory.ErrNotFound
	}
	return nil
}
