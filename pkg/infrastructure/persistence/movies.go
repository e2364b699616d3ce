// Package persistence stores CineBot's aggregates in SQLite.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/logger"
	"github.com/sipeed/cinebot/pkg/movies"
)

const movieColumns = `id, guild_id, title, is_favorite, was_watched, length, actors, director,
	genre, year, imdb_id, imdb_rating, metacritic_rating, rotten_tomatoes_rating,
	rating, language, created_at, updated_at`

// MovieRepository is the SQLite implementation of movies.Repository.
type MovieRepository struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

var _ movies.Repository = (*MovieRepository)(nil)

// OpenMovieRepository opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func OpenMovieRepository(path string) (*MovieRepository, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create movie db dir: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open movie db: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	r := &MovieRepository{db: db, dbPath: path}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init movie schema: %w", err)
	}

	logger.InfoCF("movies", "Movie store opened", map[string]interface{}{
		"db_path": path,
	})
	return r, nil
}

// Name identifies the store in the integration registry.
func (r *MovieRepository) Name() string { return "movies-db" }

func (r *MovieRepository) Close() error {
	return r.db.Close()
}

// Health pings the database.
func (r *MovieRepository) Health(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *MovieRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS movies (
		id                     TEXT PRIMARY KEY,
		guild_id               TEXT NOT NULL,
		title                  TEXT NOT NULL COLLATE NOCASE,
		is_favorite            INTEGER NOT NULL DEFAULT 0,
		was_watched            INTEGER NOT NULL DEFAULT 0,
		length                 INTEGER,
		actors                 TEXT,
		director               TEXT,
		genre                  TEXT,
		year                   INTEGER,
		imdb_id                TEXT,
		imdb_rating            INTEGER CHECK (imdb_rating BETWEEN 0 AND 100),
		metacritic_rating      INTEGER CHECK (metacritic_rating BETWEEN 0 AND 100),
		rotten_tomatoes_rating INTEGER CHECK (rotten_tomatoes_rating BETWEEN 0 AND 100),
		rating                 TEXT,
		language               TEXT,
		created_at             TEXT NOT NULL,
		updated_at             TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS movies_guild_title ON movies (guild_id, title);
	CREATE UNIQUE INDEX IF NOT EXISTS movies_guild_imdb ON movies (guild_id, imdb_id)
		WHERE imdb_id IS NOT NULL;
	`
	_, err := r.db.Exec(schema)
	return err
}

// Upsert stores m. An existing row of the same guild with the same title or
// IMDb id is overwritten, keeping its id and creation time; when the title
// and the IMDb id point at two different rows, they are merged into the
// IMDb match.
func (r *MovieRepository) Upsert(ctx context.Context, m *movies.Movie) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, created_at FROM movies
		WHERE guild_id = ? AND (title = ? OR (imdb_id IS NOT NULL AND imdb_id = ?))
		ORDER BY (imdb_id IS NOT NULL AND imdb_id = ?) DESC`,
		m.GuildID, m.Title, m.IMDbID, m.IMDbID)
	if err != nil {
		return false, fmt.Errorf("find existing movie: %w", err)
	}
	type match struct {
		id        string
		createdAt string
	}
	var matches []match
	for rows.Next() {
		var mt match
		if err := rows.Scan(&mt.id, &mt.createdAt); err != nil {
			rows.Close()
			return false, err
		}
		matches = append(matches, mt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	m.UpdatedAt = now

	if len(matches) == 0 {
		if m.ID().IsZero() {
			m.SetID(domain.NewID())
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO movies (`+movieColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			movieArgs(m)...)
		if err != nil {
			return false, fmt.Errorf("insert movie: %w", err)
		}
		return true, tx.Commit()
	}

	keep := matches[0]
	for _, dup := range matches[1:] {
		if _, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, dup.id); err != nil {
			return false, fmt.Errorf("merge duplicate movie: %w", err)
		}
	}
	m.SetID(domain.EntityID(keep.id))
	if t, err := time.Parse(time.RFC3339Nano, keep.createdAt); err == nil {
		m.CreatedAt = t
	}

	_, err = tx.ExecContext(ctx, `UPDATE movies SET
		guild_id = ?, title = ?, is_favorite = ?, was_watched = ?, length = ?, actors = ?,
		director = ?, genre = ?, year = ?, imdb_id = ?, imdb_rating = ?, metacritic_rating = ?,
		rotten_tomatoes_rating = ?, rating = ?, language = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		append(movieArgs(m)[1:], keep.id)...)
	if err != nil {
		return false, fmt.Errorf("update movie: %w", err)
	}
	return false, tx.Commit()
}

func (r *MovieRepository) FindByID(ctx context.Context, id domain.EntityID) (*movies.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, string(id))
	return scanMovie(row)
}

func (r *MovieRepository) FindByTitle(ctx context.Context, guildID, title string) (*movies.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE guild_id = ? AND title = ?`,
		guildID, strings.TrimSpace(title))
	return scanMovie(row)
}

// FindByGuild returns the guild's movies ordered by title.
func (r *MovieRepository) FindByGuild(ctx context.Context, guildID string) ([]*movies.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE guild_id = ? ORDER BY title`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var list []*movies.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MovieRepository) Delete(ctx context.Context, id domain.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return movies.ErrMovieNotFound
	}
	return nil
}

func (r *MovieRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func movieArgs(m *movies.Movie) []interface{} {
	return []interface{}{
		string(m.ID()), m.GuildID, m.Title, m.IsFavorite, m.WasWatched,
		nullInt(m.Length), nullString(m.Actors), nullString(m.Director),
		nullString(m.Genre), nullInt(m.Year), nullString(m.IMDbID),
		nullInt(m.IMDbRating), nullInt(m.MetacriticRating), nullInt(m.RottenTomatoesRating),
		nullString(m.Rated), nullString(m.Language),
		m.CreatedAt.UTC().Format(time.RFC3339Nano), m.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func scanMovie(row rowScanner) (*movies.Movie, error) {
	var (
		m                                            movies.Movie
		id, createdAt, updatedAt                     string
		length, year, imdbRating, meta, tomatoes     sql.NullInt64
		actors, director, genre, imdbID, rated, lang sql.NullString
	)
	err := row.Scan(&id, &m.GuildID, &m.Title, &m.IsFavorite, &m.WasWatched,
		&length, &actors, &director, &genre, &year, &imdbID,
		&imdbRating, &meta, &tomatoes, &rated, &lang, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, movies.ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan movie: %w", err)
	}

	m.SetID(domain.EntityID(id))
	m.Length = intPtr(length)
	m.Year = intPtr(year)
	m.IMDbRating = intPtr(imdbRating)
	m.MetacriticRating = intPtr(meta)
	m.RottenTomatoesRating = intPtr(tomatoes)
	m.Actors = actors.String
	m.Director = director.String
	m.Genre = genre.String
	m.IMDbID = imdbID.String
	m.Rated = rated.String
	m.Language = lang.String
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
