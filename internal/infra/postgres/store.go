package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/stats"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ChangesChannel is the NOTIFY channel written on every question change.
const ChangesChannel = "questions_changed"

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID        string    `bun:"id,pk"`
	Seq       int64     `bun:"seq,scanonly"`
	Data      string    `bun:"data,type:jsonb"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type statisticsRow struct {
	bun.BaseModel `bun:"table:statistics"`

	UserID    string    `bun:"user_id,pk"`
	Data      string    `bun:"data,type:jsonb"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Store keeps question records and statistics as JSONB documents.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// Open connects bun to the Postgres DSN.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) FetchAllQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	var rows []questionRow
	if err := s.db.NewSelect().Model(&rows).Order("seq ASC").Scan(ctx); err != nil {
		return nil, unavailable("select questions", err)
	}
	out := make([]domain.RawQuestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.RawQuestion{ID: r.ID, Data: json.RawMessage(r.Data)})
	}
	return out, nil
}

func (s *Store) FetchQuestion(ctx context.Context, id string) (domain.RawQuestion, error) {
	var row questionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RawQuestion{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.RawQuestion{}, unavailable("select question "+id, err)
	}
	return domain.RawQuestion{ID: row.ID, Data: json.RawMessage(row.Data)}, nil
}

func (s *Store) AddQuestion(ctx context.Context, data json.RawMessage) (string, error) {
	now := s.now().UTC()
	row := &questionRow{ID: uuid.NewString(), Data: string(data), CreatedAt: now, UpdatedAt: now}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return err
		}
		return notify(ctx, tx, "add")
	})
	if err != nil {
		return "", unavailable("insert question", err)
	}
	return row.ID, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, id string, data json.RawMessage) error {
	row := &questionRow{ID: id, Data: string(data), UpdatedAt: s.now().UTC()}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(row).Column("data", "updated_at").WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrQuestionNotFound
		}
		return notify(ctx, tx, "update")
	})
	if errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.ErrQuestionNotFound
	}
	if err != nil {
		return unavailable("update question "+id, err)
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.DeleteQuestions(ctx, []string{id})
}

func (s *Store) DeleteQuestions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx); err != nil {
			return err
		}
		return notify(ctx, tx, "delete")
	})
	if err != nil {
		return unavailable("delete questions", err)
	}
	return nil
}

func (s *Store) FetchStatistics(ctx context.Context, userID string) (*domain.UserStatistics, error) {
	return fetchStatistics(ctx, s.db, userID, false)
}

func (s *Store) PersistStatistics(ctx context.Context, userID string, st domain.UserStatistics) error {
	return persistStatistics(ctx, s.db, userID, st, s.now().UTC())
}

// UpdateStatistics runs fn with the user's row locked. A transaction-scoped
// advisory lock covers users that have no row yet.
func (s *Store) UpdateStatistics(ctx context.Context, userID string, fn func(*domain.UserStatistics) (domain.UserStatistics, error)) (domain.UserStatistics, error) {
	var (
		next  domain.UserStatistics
		fnErr error
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", userID); err != nil {
			return unavailable("lock statistics for "+userID, err)
		}
		current, err := fetchStatistics(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		next, fnErr = fn(current)
		if fnErr != nil {
			return fnErr
		}
		return persistStatistics(ctx, tx, userID, next, s.now().UTC())
	})
	if fnErr != nil {
		return domain.UserStatistics{}, fnErr
	}
	if err != nil {
		return domain.UserStatistics{}, unavailable("update statistics for "+userID, err)
	}
	return next, nil
}

func fetchStatistics(ctx context.Context, db bun.IDB, userID string, forUpdate bool) (*domain.UserStatistics, error) {
	var row statisticsRow
	q := db.NewSelect().Model(&row).Where("user_id = ?", userID)
	if forUpdate {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("select statistics for "+userID, err)
	}
	st := stats.Decode([]byte(row.Data))
	return &st, nil
}

func persistStatistics(ctx context.Context, db bun.IDB, userID string, st domain.UserStatistics, now time.Time) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	row := &statisticsRow{UserID: userID, Data: string(data), UpdatedAt: now}
	_, err = db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return unavailable("upsert statistics for "+userID, err)
	}
	return nil
}

func notify(ctx context.Context, tx bun.Tx, op string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_notify(?, ?)", ChangesChannel, op)
	return err
}
