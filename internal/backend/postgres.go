package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClaimsVerifier turns an access token into its verified claims.
type ClaimsVerifier interface {
	Claims(token string) (map[string]any, error)
}

// Postgres reaches the same tables and procedures as REST, but over a
// direct connection. Each call runs in a transaction carrying the
// caller's claims the way PostgREST sets them.
type Postgres struct {
	pool   *pgxpool.Pool
	verify ClaimsVerifier
	log    hclog.Logger
}

var _ Backend = (*Postgres)(nil)

func OpenPostgres(ctx context.Context, databaseURL string, verify ClaimsVerifier, logger hclog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &Postgres{pool: pool, verify: verify, log: logger}, nil
}

func (p *Postgres) Session(token string) Session {
	return &pgSession{p: p, token: token}
}

func (p *Postgres) Close() {
	p.pool.Close()
}

type pgSession struct {
	p     *Postgres
	token string
}

func (s *pgSession) claims() (map[string]any, error) {
	if s.token == "" || s.p.verify == nil {
		return nil, nil
	}
	return s.p.verify.Claims(s.token)
}

func (s *pgSession) tx(ctx context.Context, fn func(pgx.Tx) error) error {
	role, claims := "anon", "{}"
	if c, err := s.claims(); err == nil && c != nil {
		b, err := json.Marshal(c)
		if err != nil {
			return err
		}
		role, claims = "authenticated", string(b)
	}

	tx, err := s.p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.claims', $1, true), set_config('role', $2, true)`, claims, role); err != nil {
		return toAPIError(err)
	}
	if err := fn(tx); err != nil {
		return toAPIError(err)
	}
	return tx.Commit(ctx)
}

func toAPIError(err error) error {
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		return &APIError{Message: pg.Message, Code: pg.Code, Details: pg.Detail, Hint: pg.Hint}
	}
	return err
}

func (s *pgSession) ActiveSession(ctx context.Context) (bool, error) {
	if s.token == "" {
		return false, nil
	}
	if _, err := s.claims(); err != nil {
		s.p.log.Debug("token rejected", "error", err)
		return false, nil
	}
	return true, nil
}

func (s *pgSession) MatchExists(ctx context.Context, matchID int64) error {
	var ok bool
	err := s.tx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, matchID).Scan(&ok)
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	return nil
}

func (s *pgSession) Call(ctx context.Context, procedure string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	sql := `SELECT ` + pgx.Identifier{"public", procedure}.Sanitize() + `($1::jsonb)`
	return s.tx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql, string(b))
		return err
	})
}

func (s *pgSession) MatchOverview(ctx context.Context, id int64) (MatchOverview, error) {
	var out MatchOverview
	err := s.tx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id,
			       coalesce(competition, '') AS competition,
			       coalesce(match_name, '')  AS match_name,
			       coalesce(format, '')      AS format,
			       coalesce(home_team, '')   AS home_team,
			       coalesce(away_team, '')   AS away_team,
			       home_team_id, away_team_id, starts_at
			  FROM match_overview
			 WHERE id = $1`, id)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[MatchOverview])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return MatchOverview{}, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	return out, err
}

func (s *pgSession) Players(ctx context.Context, teamIDs []int64) ([]Player, error) {
	var out []Player
	err := s.tx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, name, team_id, coalesce(role, '') AS role
			  FROM players
			 WHERE team_id = ANY($1)
			 ORDER BY name`, teamIDs)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[Player])
		return err
	})
	return out, err
}

func (s *pgSession) Teams(ctx context.Context, ids []int64) ([]Team, error) {
	var out []Team
	err := s.tx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, name, coalesce(short_name, '') AS short_name
			  FROM teams
			 WHERE id = ANY($1)`, ids)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[Team])
		return err
	})
	return out, err
}
