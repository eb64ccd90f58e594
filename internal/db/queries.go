package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Preset is a row of the presets table.
type Preset struct {
	ID        pgtype.UUID        `json:"id"`
	Name      string             `json:"name"`
	Notes     string             `json:"notes"`
	Config    string             `json:"config"`
	Meta      PresetMeta         `json:"meta"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

const presetColumns = `id, name, notes, config, meta, created_at, updated_at`

func scanPreset(row pgx.Row) (*Preset, error) {
	var p Preset
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Notes,
		&p.Config,
		&p.Meta,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const upsertPreset = `-- name: UpsertPreset :one
INSERT INTO presets (id, name, notes, config, meta)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    notes = EXCLUDED.notes,
    config = EXCLUDED.config,
    meta = EXCLUDED.meta,
    updated_at = now()
RETURNING ` + presetColumns

type UpsertPresetParams struct {
	ID     pgtype.UUID
	Name   string
	Notes  string
	Config string
	Meta   PresetMeta
}

func (q *Queries) UpsertPreset(ctx context.Context, arg *UpsertPresetParams) (*Preset, error) {
	row := q.db.QueryRow(ctx, upsertPreset,
		arg.ID,
		arg.Name,
		arg.Notes,
		arg.Config,
		arg.Meta,
	)
	return scanPreset(row)
}

const getPreset = `-- name: GetPreset :one
SELECT ` + presetColumns + ` FROM presets WHERE id = $1`

func (q *Queries) GetPreset(ctx context.Context, id pgtype.UUID) (*Preset, error) {
	return scanPreset(q.db.QueryRow(ctx, getPreset, id))
}

const listPresets = `-- name: ListPresets :many
SELECT ` + presetColumns + ` FROM presets ORDER BY updated_at DESC LIMIT $1`

func (q *Queries) ListPresets(ctx context.Context, limit int32) ([]*Preset, error) {
	rows, err := q.db.Query(ctx, listPresets, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deletePreset = `-- name: DeletePreset :execrows
DELETE FROM presets WHERE id = $1`

func (q *Queries) DeletePreset(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePreset, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
