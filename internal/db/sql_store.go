package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/kihaltung/attitude/internal/api"
	"github.com/kihaltung/attitude/internal/models"
	"github.com/kihaltung/attitude/internal/services"
)

var _ api.Store = (*SQLStore)(nil)

// SQLStore persists survey data in SQLite or Postgres. Queries are written
// with ? placeholders and rebound for the driver.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to driver (sqlite3 or postgres) and applies the SQLite
// connection pragmas.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" && !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// one writer; pragmas are per connection
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		}
		for _, stmt := range pragmas {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
			}
		}
	}
	return db, nil
}

func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) q(query string) string { return s.db.Rebind(query) }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// get runs a single-row query; a missing row yields (nil, nil).
func get[T any](ctx context.Context, s *SQLStore, query string, args ...any) (*T, error) {
	var v T
	if err := s.db.GetContext(ctx, &v, s.q(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Items

func (s *SQLStore) ListItems(ctx context.Context) ([]models.ItemRow, error) {
	out := []models.ItemRow{}
	err := s.db.SelectContext(ctx, &out, `SELECT id, text, category FROM items ORDER BY id`)
	return out, err
}

func (s *SQLStore) GetItem(ctx context.Context, id int64) (*models.ItemRow, error) {
	return get[models.ItemRow](ctx, s, `SELECT id, text, category FROM items WHERE id = ?`, id)
}

func (s *SQLStore) CreateItem(ctx context.Context, it models.ItemRow) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO items (text, category) VALUES (?, ?) RETURNING id`), it.Text, it.Category).Scan(&id)
	return id, err
}

// Responses

const responseColumns = `id, gender, age, experience, role, school_level, consent, created_at`

func (s *SQLStore) ListResponsesPage(ctx context.Context, offset, limit int) ([]models.ResponseRow, error) {
	out := []models.ResponseRow{}
	err := s.db.SelectContext(ctx, &out, s.q(`SELECT `+responseColumns+` FROM responses ORDER BY created_at, id LIMIT ? OFFSET ?`), limit, offset)
	return out, err
}

func (s *SQLStore) ListAnswersPage(ctx context.Context, offset, limit int) ([]models.AnswerRow, error) {
	out := []models.AnswerRow{}
	err := s.db.SelectContext(ctx, &out, s.q(`
		SELECT a.response_id, a.item_id, a.value
		FROM answers a JOIN responses r ON r.id = a.response_id
		ORDER BY r.created_at, r.id, a.item_id
		LIMIT ? OFFSET ?`), limit, offset)
	return out, err
}

func (s *SQLStore) CreateResponse(ctx context.Context, r models.ResponseRow, answers []models.AnswerRow) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO responses (`+responseColumns+`)
			VALUES (:id, :gender, :age, :experience, :role, :school_level, :consent, :created_at)`, r)
		if err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
		for _, a := range answers {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO answers (response_id, item_id, value) VALUES (:response_id, :item_id, :value)`, a); err != nil {
				return fmt.Errorf("insert answer for item %d: %w", a.ItemID, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) GetResponse(ctx context.Context, id string) (*models.ResponseRow, error) {
	return get[models.ResponseRow](ctx, s, `SELECT `+responseColumns+` FROM responses WHERE id = ?`, id)
}

func (s *SQLStore) ListAnswersByResponse(ctx context.Context, id string) ([]models.AnswerRow, error) {
	out := []models.AnswerRow{}
	err := s.db.SelectContext(ctx, &out, s.q(`SELECT response_id, item_id, value FROM answers WHERE response_id = ? ORDER BY item_id`), id)
	return out, err
}

func (s *SQLStore) DeleteResponse(ctx context.Context, id string) (bool, error) {
	var found bool
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM answers WHERE response_id = ?`), id); err != nil {
			return err
		}
		var err error
		found, err = affected(tx.ExecContext(ctx, tx.Rebind(`DELETE FROM responses WHERE id = ?`), id))
		return err
	})
	return found, err
}

func (s *SQLStore) SetConsent(ctx context.Context, id, consent string) (bool, error) {
	return affected(s.db.ExecContext(ctx, s.q(`UPDATE responses SET consent = ? WHERE id = ?`), consent, id))
}

// Challenges

const challengeColumns = `id, audio_path, duration_sec, status, device_hash, creator_role, creator_level, reports, created_at`

func (s *SQLStore) CreateChallenge(ctx context.Context, c models.ChallengeRow) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO challenges (`+challengeColumns+`)
		VALUES (:id, :audio_path, :duration_sec, :status, :device_hash, :creator_role, :creator_level, :reports, :created_at)`, c)
	return err
}

func (s *SQLStore) GetChallenge(ctx context.Context, id string) (*models.ChallengeRow, error) {
	return get[models.ChallengeRow](ctx, s, `SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id)
}

func (s *SQLStore) ListChallenges(ctx context.Context, status string) ([]models.ChallengeRow, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges`
	var args []any
	if status = strings.TrimSpace(status); status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	out := []models.ChallengeRow{}
	err := s.db.SelectContext(ctx, &out, s.q(query+` ORDER BY created_at DESC`), args...)
	return out, err
}

func (s *SQLStore) ListRatings(ctx context.Context) ([]models.ChallengeRatingRow, error) {
	out := []models.ChallengeRatingRow{}
	err := s.db.SelectContext(ctx, &out, `SELECT challenge_id, device_hash, impact, difficulty, created_at
		FROM challenge_ratings ORDER BY challenge_id, device_hash`)
	return out, err
}

func (s *SQLStore) UpsertRating(ctx context.Context, r models.ChallengeRatingRow) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO challenge_ratings (challenge_id, device_hash, impact, difficulty, created_at)
		VALUES (:challenge_id, :device_hash, :impact, :difficulty, :created_at)
		ON CONFLICT (challenge_id, device_hash) DO UPDATE
		SET impact = excluded.impact, difficulty = excluded.difficulty, created_at = excluded.created_at`, r)
	return err
}

func (s *SQLStore) SetChallengeStatus(ctx context.Context, id, status string, report bool) (bool, error) {
	bump := 0
	if report {
		bump = 1
	}
	return affected(s.db.ExecContext(ctx, s.q(`UPDATE challenges SET status = ?, reports = reports + ? WHERE id = ?`), status, bump, id))
}

// Researchers

func (s *SQLStore) FindResearcherByEmail(ctx context.Context, email string) (*models.ResearcherRow, error) {
	return get[models.ResearcherRow](ctx, s, `SELECT id, email, pass_hash, created_at FROM researchers WHERE email = ?`, email)
}

func (s *SQLStore) CountResearchers(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM researchers`)
	return n, err
}

func (s *SQLStore) AddResearcher(ctx context.Context, r models.ResearcherRow) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO researchers (id, email, pass_hash, created_at)
		VALUES (:id, :email, :pass_hash, :created_at)`, r)
	if isUniqueViolation(err) {
		return services.NewConflictError("email exists")
	}
	return err
}

// Audit

func (s *SQLStore) AddAudit(ctx context.Context, e models.AuditEntry) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO audit_log (time, actor, action, target, note)
		VALUES (:time, :actor, :action, :target, :note)`, e)
	return err
}

func (s *SQLStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []models.AuditEntry{}
	err := s.db.SelectContext(ctx, &out, s.q(`SELECT time, actor, action, target, note FROM audit_log ORDER BY time DESC LIMIT ?`), limit)
	return out, err
}
