package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// foreignKeyViolation is the SQLSTATE raised when an artifact references a
// missing fiche.
const foreignKeyViolation = "23503"

const schema = `
CREATE TABLE IF NOT EXISTS fiches (
	id         uuid PRIMARY KEY,
	title      text NOT NULL,
	content    text NOT NULL,
	fields     jsonb NOT NULL DEFAULT '{}',
	line       integer NOT NULL DEFAULT 0,
	prompt     text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS fiches_created_at_idx ON fiches (created_at DESC);

CREATE TABLE IF NOT EXISTS fiche_artifacts (
	id         uuid PRIMARY KEY,
	fiche_id   uuid NOT NULL REFERENCES fiches (id),
	kind       text NOT NULL,
	content    text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS fiche_artifacts_fiche_idx ON fiche_artifacts (fiche_id, created_at DESC);
`

// Postgres stores fiches in PostgreSQL.
type Postgres struct {
	db DBTX
}

// NewPostgres wraps db. Call Migrate once before use.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) SaveFiche(ctx context.Context, f *Fiche) error {
	stamp(&f.ID, &f.CreatedAt)

	fields, err := json.Marshal(f.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	_, err = p.db.Exec(ctx,
		`INSERT INTO fiches (id, title, content, fields, line, prompt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		toPgUUID(f.ID), f.Title, f.Content, fields, f.Line, f.Prompt, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fiche: %w", err)
	}
	return nil
}

const ficheColumns = `id, title, content, fields, line, prompt, created_at`

func (p *Postgres) ListFiches(ctx context.Context) ([]Fiche, error) {
	rows, err := p.db.Query(ctx, `SELECT `+ficheColumns+` FROM fiches ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list fiches: %w", err)
	}
	defer rows.Close()

	var out []Fiche
	for rows.Next() {
		f, err := scanFiche(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fiches: %w", err)
	}
	return out, nil
}

func (p *Postgres) GetFiche(ctx context.Context, id uuid.UUID) (Fiche, error) {
	row := p.db.QueryRow(ctx, `SELECT `+ficheColumns+` FROM fiches WHERE id = $1`, toPgUUID(id))
	f, err := scanFiche(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fiche{}, fmt.Errorf("fiche %s: %w", id, ErrNotFound)
	}
	return f, err
}

func (p *Postgres) SaveArtifact(ctx context.Context, a *Artifact) error {
	stamp(&a.ID, &a.CreatedAt)

	_, err := p.db.Exec(ctx,
		`INSERT INTO fiche_artifacts (id, fiche_id, kind, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		toPgUUID(a.ID), toPgUUID(a.FicheID), string(a.Kind), a.Content, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("fiche %s: %w", a.FicheID, ErrNotFound)
		}
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (p *Postgres) ListArtifacts(ctx context.Context, ficheID uuid.UUID) ([]Artifact, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id, fiche_id, kind, content, created_at
		 FROM fiche_artifacts WHERE fiche_id = $1
		 ORDER BY created_at DESC, id`,
		toPgUUID(ficheID),
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a       Artifact
			id, fID pgtype.UUID
			kind    string
		)
		if err := rows.Scan(&id, &fID, &kind, &a.Content, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.ID, a.FicheID, a.Kind = uuid.UUID(id.Bytes), uuid.UUID(fID.Bytes), ArtifactKind(kind)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}

func scanFiche(row pgx.Row) (Fiche, error) {
	var (
		f      Fiche
		id     pgtype.UUID
		fields []byte
	)
	if err := row.Scan(&id, &f.Title, &f.Content, &fields, &f.Line, &f.Prompt, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fiche{}, err
		}
		return Fiche{}, fmt.Errorf("scan fiche: %w", err)
	}
	f.ID = uuid.UUID(id.Bytes)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &f.Fields); err != nil {
			return Fiche{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return f, nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
