package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Times are stored as Unix microseconds so ORDER BY is numeric.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS fiches (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	fields     TEXT NOT NULL DEFAULT '{}',
	line       INTEGER NOT NULL DEFAULT 0,
	prompt     TEXT NOT NULL DEFAULT '',
	created_us INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS fiches_created_idx ON fiches (created_us DESC);

CREATE TABLE IF NOT EXISTS fiche_artifacts (
	id         TEXT PRIMARY KEY,
	fiche_id   TEXT NOT NULL REFERENCES fiches (id),
	kind       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_us INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS fiche_artifacts_fiche_idx ON fiche_artifacts (fiche_id, created_us DESC);
`

// SQLite stores fiches in a local SQLite file, for single-host deployments
// without a Postgres server.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) SaveFiche(ctx context.Context, f *Fiche) error {
	stamp(&f.ID, &f.CreatedAt)

	fields, err := json.Marshal(f.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fiches (id, title, content, fields, line, prompt, created_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.Title, f.Content, string(fields), f.Line, f.Prompt, f.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert fiche: %w", err)
	}
	return nil
}

const sqliteFicheColumns = `id, title, content, fields, line, prompt, created_us`

func (s *SQLite) ListFiches(ctx context.Context) ([]Fiche, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteFicheColumns+` FROM fiches ORDER BY created_us DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list fiches: %w", err)
	}
	defer rows.Close()

	var out []Fiche
	for rows.Next() {
		f, err := scanSQLiteFiche(rows)
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

func (s *SQLite) GetFiche(ctx context.Context, id uuid.UUID) (Fiche, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteFicheColumns+` FROM fiches WHERE id = ?`, id.String())
	f, err := scanSQLiteFiche(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Fiche{}, fmt.Errorf("fiche %s: %w", id, ErrNotFound)
	}
	return f, err
}

// SaveArtifact inserts only when the fiche exists, so no foreign key pragma
// is needed.
func (s *SQLite) SaveArtifact(ctx context.Context, a *Artifact) error {
	stamp(&a.ID, &a.CreatedAt)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO fiche_artifacts (id, fiche_id, kind, content, created_us)
		 SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM fiches WHERE id = ?)`,
		a.ID.String(), a.FicheID.String(), string(a.Kind), a.Content, a.CreatedAt.UnixMicro(), a.FicheID.String(),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fiche %s: %w", a.FicheID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ListArtifacts(ctx context.Context, ficheID uuid.UUID) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fiche_id, kind, content, created_us
		 FROM fiche_artifacts WHERE fiche_id = ?
		 ORDER BY created_us DESC, rowid DESC`,
		ficheID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a         Artifact
			id, fID   string
			kind      string
			createdUS int64
		)
		if err := rows.Scan(&id, &fID, &kind, &a.Content, &createdUS); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if a.FicheID, err = uuid.Parse(fID); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Kind, a.CreatedAt = ArtifactKind(kind), time.UnixMicro(createdUS).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteFiche(row rowScanner) (Fiche, error) {
	var (
		f         Fiche
		id        string
		fields    string
		createdUS int64
	)
	if err := row.Scan(&id, &f.Title, &f.Content, &fields, &f.Line, &f.Prompt, &createdUS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Fiche{}, err
		}
		return Fiche{}, fmt.Errorf("scan fiche: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Fiche{}, fmt.Errorf("scan fiche: %w", err)
	}
	f.ID, f.CreatedAt = parsed, time.UnixMicro(createdUS).UTC()
	if fields != "" {
		if err := json.Unmarshal([]byte(fields), &f.Fields); err != nil {
			return Fiche{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return f, nil
}
