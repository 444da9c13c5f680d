package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"

	_ "github.com/lib/pq"

	"github.com/luckeedao/votecore/pkg/model"
	"github.com/luckeedao/votecore/pkg/verr"
)

// Postgres is a Store backed by PostgreSQL, for deployments that need a
// durable, shared backend. Schema matches the contract's persistence
// layout: votes/commitments/reveals with a UNIQUE(vote_id, voter)
// constraint on the latter two, which is what actually gives the store
// its atomic uniqueness guarantee — concurrent inserts racing the same
// key let the database pick the winner and return an error to the loser.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens dbURL and ensures the schema exists.
func NewPostgres(dbURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "open database")
	}
	if err := createSchema(db); err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "create schema")
	}
	return &Postgres{db: db}, nil
}

func createSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS votes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		template_id TEXT NOT NULL,
		template_params JSONB NOT NULL,
		creator TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		commitment_start TIMESTAMPTZ NOT NULL,
		commitment_end TIMESTAMPTZ NOT NULL,
		reveal_start TIMESTAMPTZ NOT NULL,
		reveal_end TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		results JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_votes_creator ON votes(creator);
	CREATE INDEX IF NOT EXISTS idx_votes_status ON votes(status);
	CREATE INDEX IF NOT EXISTS idx_votes_created_at ON votes(created_at);

	CREATE TABLE IF NOT EXISTS commitments (
		id TEXT PRIMARY KEY,
		vote_id TEXT NOT NULL REFERENCES votes(id),
		voter TEXT NOT NULL,
		commitment_hash TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		salt BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE(vote_id, voter)
	);
	CREATE INDEX IF NOT EXISTS idx_commitments_vote_id ON commitments(vote_id);

	CREATE TABLE IF NOT EXISTS reveals (
		id TEXT PRIMARY KEY,
		vote_id TEXT NOT NULL REFERENCES votes(id),
		voter TEXT NOT NULL,
		value JSONB NOT NULL,
		salt BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE(vote_id, voter)
	);
	CREATE INDEX IF NOT EXISTS idx_reveals_vote_id ON reveals(vote_id);
	`
	_, err := db.Exec(schema)
	return err
}

func (p *Postgres) InsertVote(ctx context.Context, v *model.Vote) error {
	params, err := json.Marshal(v.TemplateParams)
	if err != nil {
		return verr.Wrap(verr.InvalidConfig, err, "marshal template params")
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO votes (id, title, description, template_id, template_params, creator,
			algorithm, created_at, commitment_start, commitment_end, reveal_start, reveal_end, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, v.ID, v.Title, v.Description, v.TemplateID, params, v.Creator, v.Algorithm,
		v.CreatedAt, v.CommitmentStart, v.CommitmentEnd, v.RevealStart, v.RevealEnd, v.Status)
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "insert vote")
	}
	return nil
}

func (p *Postgres) GetVote(ctx context.Context, id string) (*model.Vote, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, title, description, template_id, template_params, creator, algorithm,
			created_at, commitment_start, commitment_end, reveal_start, reveal_end, status, results
		FROM votes WHERE id = $1
	`, id)
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verr.New(verr.NotFound, "vote %q not found", id)
	}
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "get vote")
	}
	return v, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVote(row rowScanner) (*model.Vote, error) {
	var v model.Vote
	var params, results []byte
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.TemplateID, &params, &v.Creator, &v.Algorithm,
		&v.CreatedAt, &v.CommitmentStart, &v.CommitmentEnd, &v.RevealStart, &v.RevealEnd, &v.Status, &results)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &v.TemplateParams); err != nil {
			return nil, err
		}
	}
	if len(results) > 0 {
		v.Results = &model.VoteResults{}
		if err := json.Unmarshal(results, v.Results); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

func (p *Postgres) ListVotes(ctx context.Context, filter model.Filter, page, size int) (*model.Page, error) {
	where := "WHERE ($1 = '' OR status = $1) AND ($2 = '' OR creator = $2)"
	var total int
	err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM votes "+where, string(filter.Status), filter.Creator).Scan(&total)
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "count votes")
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description, template_id, template_params, creator, algorithm,
			created_at, commitment_start, commitment_end, reveal_start, reveal_end, status, results
		FROM votes `+where+`
		ORDER BY created_at DESC, id ASC
		LIMIT $3 OFFSET $4
	`, string(filter.Status), filter.Creator, size, (page-1)*size)
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "list votes")
	}
	defer rows.Close()

	items := make([]*model.Vote, 0, size)
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, verr.Wrap(verr.StorageError, err, "scan vote row")
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "iterate vote rows")
	}

	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	return &model.Page{Items: items, Total: total, PageNum: page, PageSize: size, TotalPages: totalPages}, nil
}

func (p *Postgres) UpdateVoteStatus(ctx context.Context, id string, status model.Status) error {
	res, err := p.db.ExecContext(ctx, "UPDATE votes SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "update vote status")
	}
	return requireRowAffected(res, id)
}

func (p *Postgres) UpdateVoteResults(ctx context.Context, id string, results *model.VoteResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "marshal results")
	}
	res, err := p.db.ExecContext(ctx, "UPDATE votes SET results = $1 WHERE id = $2", data, id)
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "update vote results")
	}
	return requireRowAffected(res, id)
}

func requireRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "rows affected")
	}
	if n == 0 {
		return verr.New(verr.NotFound, "vote %q not found", id)
	}
	return nil
}

func (p *Postgres) InsertCommitment(ctx context.Context, c *model.Commitment) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO commitments (id, vote_id, voter, commitment_hash, algorithm, salt, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, c.ID, c.VoteID, c.Voter, c.CommitmentHash, c.Algorithm, hex.EncodeToString(c.Salt), c.CreatedAt)
	if isUniqueViolation(err) {
		return verr.New(verr.AlreadyCommitted, "voter %q already committed on vote %q", c.Voter, c.VoteID)
	}
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "insert commitment")
	}
	return nil
}

func (p *Postgres) GetCommitment(ctx context.Context, voteID, voter string) (*model.Commitment, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, vote_id, voter, commitment_hash, algorithm, salt, created_at
		FROM commitments WHERE vote_id = $1 AND voter = $2
	`, voteID, voter)
	c, err := scanCommitment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "get commitment")
	}
	return c, nil
}

func scanCommitment(row rowScanner) (*model.Commitment, error) {
	var c model.Commitment
	var saltHex string
	if err := row.Scan(&c.ID, &c.VoteID, &c.Voter, &c.CommitmentHash, &c.Algorithm, &saltHex, &c.CreatedAt); err != nil {
		return nil, err
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, err
	}
	c.Salt = salt
	return &c, nil
}

func (p *Postgres) ListCommitments(ctx context.Context, voteID string) ([]*model.Commitment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, vote_id, voter, commitment_hash, algorithm, salt, created_at
		FROM commitments WHERE vote_id = $1 ORDER BY created_at ASC
	`, voteID)
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "list commitments")
	}
	defer rows.Close()

	out := []*model.Commitment{}
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, verr.Wrap(verr.StorageError, err, "scan commitment row")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertReveal(ctx context.Context, r *model.Reveal) error {
	value, err := json.Marshal(r.Value)
	if err != nil {
		return verr.Wrap(verr.BallotInvalid, err, "marshal reveal value")
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO reveals (id, vote_id, voter, value, salt, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, r.ID, r.VoteID, r.Voter, value, hex.EncodeToString(r.Salt), r.CreatedAt)
	if isUniqueViolation(err) {
		return verr.New(verr.AlreadyRevealed, "voter %q already revealed on vote %q", r.Voter, r.VoteID)
	}
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "insert reveal")
	}
	return nil
}

func (p *Postgres) GetReveal(ctx context.Context, voteID, voter string) (*model.Reveal, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, vote_id, voter, value, salt, created_at
		FROM reveals WHERE vote_id = $1 AND voter = $2
	`, voteID, voter)
	r, err := scanReveal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "get reveal")
	}
	return r, nil
}

func scanReveal(row rowScanner) (*model.Reveal, error) {
	var r model.Reveal
	var value []byte
	var saltHex string
	if err := row.Scan(&r.ID, &r.VoteID, &r.Voter, &value, &saltHex, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(value, &r.Value); err != nil {
		return nil, err
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, err
	}
	r.Salt = salt
	return &r, nil
}

func (p *Postgres) ListReveals(ctx context.Context, voteID string) ([]*model.Reveal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, vote_id, voter, value, salt, created_at
		FROM reveals WHERE vote_id = $1 ORDER BY created_at ASC
	`, voteID)
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "list reveals")
	}
	defer rows.Close()

	out := []*model.Reveal{}
	for rows.Next() {
		r, err := scanReveal(rows)
		if err != nil {
			return nil, verr.Wrap(verr.StorageError, err, "scan reveal row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteVote(ctx context.Context, id string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reveals WHERE vote_id = $1", id); err != nil {
		return verr.Wrap(verr.StorageError, err, "delete reveals")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM commitments WHERE vote_id = $1", id); err != nil {
		return verr.Wrap(verr.StorageError, err, "delete commitments")
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM votes WHERE id = $1", id)
	if err != nil {
		return verr.Wrap(verr.StorageError, err, "delete vote")
	}
	if err := requireRowAffected(res, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return verr.Wrap(verr.StorageError, err, "commit delete")
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), without importing the driver's error type
// directly: any error in the chain exposing SQLState() is checked by its
// code, and other errors by searching their message for the code.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var state interface{ SQLState() string }
	if errors.As(err, &state) {
		return state.SQLState() == "23505"
	}
	return containsSQLState(err.Error(), "23505")
}

func containsSQLState(msg, code string) bool {
	for i := 0; i+len(code) <= len(msg); i++ {
		if msg[i:i+len(code)] == code {
			return true
		}
	}
	return false
}

var _ Store = (*Postgres)(nil)
