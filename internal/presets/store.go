package presets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"thirdcoast.systems/fgcdesigner/internal/db"
	"thirdcoast.systems/fgcdesigner/pkg/fgc"
)

var (
	ErrNotFound      = errors.New("preset not found")
	ErrInvalid       = errors.New("invalid preset")
	ErrDuplicateName = errors.New("a preset with this name already exists")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Querier is the subset of db.Queries the store needs.
type Querier interface {
	UpsertPreset(ctx context.Context, arg *db.UpsertPresetParams) (*db.Preset, error)
	GetPreset(ctx context.Context, id pgtype.UUID) (*db.Preset, error)
	ListPresets(ctx context.Context, limit int32) ([]*db.Preset, error)
	DeletePreset(ctx context.Context, id pgtype.UUID) (int64, error)
}

// Preset is a named film grain configuration.
type Preset struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Notes     *Notes        `json:"notes"`
	Config    string        `json:"config"`
	Meta      db.PresetMeta `json:"meta"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Model parses the stored config onto a reset model.
func (p *Preset) Model() (*fgc.Model, error) {
	return fgc.Parse(strings.NewReader(p.Config), fgc.New())
}

// Input is what callers provide to create or replace a preset. A zero ID
// creates a new preset.
type Input struct {
	ID     uuid.UUID     `json:"id"`
	Name   string        `json:"name" validate:"required,max=120"`
	Notes  string        `json:"notes" validate:"max=20000"`
	Config string        `json:"config" validate:"required,max=65536"`
	Meta   db.PresetMeta `json:"meta"`
}

type Store struct {
	q        Querier
	validate *validator.Validate
	logger   *slog.Logger
}

func NewStore(q Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		q:        q,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

func fromRow(row *db.Preset) *Preset {
	return &Preset{
		ID:        uuid.UUID(row.ID.Bytes),
		Name:      row.Name,
		Notes:     NewNotes(row.Notes),
		Config:    row.Config,
		Meta:      row.Meta,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

// Save validates in and stores it. The config text is parsed and stored in
// its canonical serialized form, enable flags included.
func (s *Store) Save(ctx context.Context, in Input) (*Preset, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	m, err := fgc.Parse(strings.NewReader(in.Config), fgc.New())
	if err != nil {
		return nil, fmt.Errorf("%w: config: %w", ErrInvalid, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: config: %w", ErrInvalid, err)
	}

	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row, err := s.q.UpsertPreset(ctx, &db.UpsertPresetParams{
		ID:     db.PgUUID(id),
		Name:   in.Name,
		Notes:  in.Notes,
		Config: string(fgc.Marshal(m, false)),
		Meta:   in.Meta,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("save preset: %w", err)
	}

	s.logger.Info("preset saved", "id", id, "name", in.Name)
	return fromRow(row), nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Preset, error) {
	row, err := s.q.GetPreset(ctx, db.PgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preset: %w", err)
	}
	return fromRow(row), nil
}

// List returns the most recently updated presets first.
func (s *Store) List(ctx context.Context, limit int) ([]*Preset, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	rows, err := s.q.ListPresets(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	out := make([]*Preset, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.q.DeletePreset(ctx, db.PgUUID(id))
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Info("preset deleted", "id", id)
	return nil
}
