package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries is the hand-written data access layer. Method and param-struct
// shapes follow the usual generated-query convention so the services
// above read the same either way.
type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
}

type CreateUserParams struct {
	ID       string
	Email    string
	Password string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, password, created_at`,
		arg.ID, arg.Email, arg.Password)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, email, password, created_at FROM users WHERE email = $1`,
		email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, email, password, created_at FROM users WHERE id = $1`,
		id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	return u, err
}

type Curve struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateCurveParams struct {
	ID      string
	Name    string
	OwnerID string
}

func (q *Queries) CreateCurve(ctx context.Context, arg CreateCurveParams) (Curve, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO curves (id, name, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, owner_id, created_at, updated_at`,
		arg.ID, arg.Name, arg.OwnerID)
	var c Curve
	err := row.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (q *Queries) GetCurve(ctx context.Context, id string) (Curve, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM curves WHERE id = $1`,
		id)
	var c Curve
	err := row.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (q *Queries) ListCurvesForUser(ctx context.Context, ownerID string) ([]Curve, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		 FROM curves WHERE owner_id = $1 ORDER BY updated_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var curves []Curve
	for rows.Next() {
		var c Curve
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		curves = append(curves, c)
	}
	return curves, rows.Err()
}

func (q *Queries) DeleteCurve(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM curves WHERE id = $1`, id)
	return err
}

type Snapshot struct {
	ID        string
	CurveID   string
	Version   int32
	Document  json.RawMessage
	CreatedAt time.Time
}

type CreateSnapshotParams struct {
	ID       string
	CurveID  string
	Version  int32
	Document json.RawMessage
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO curve_snapshots (id, curve_id, version, document)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, curve_id, version, document, created_at`,
		arg.ID, arg.CurveID, arg.Version, arg.Document)
	var s Snapshot
	err := row.Scan(&s.ID, &s.CurveID, &s.Version, &s.Document, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetLatestSnapshot(ctx context.Context, curveID string) (Snapshot, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, curve_id, version, document, created_at
		 FROM curve_snapshots WHERE curve_id = $1
		 ORDER BY version DESC LIMIT 1`,
		curveID)
	var s Snapshot
	err := row.Scan(&s.ID, &s.CurveID, &s.Version, &s.Document, &s.CreatedAt)
	return s, err
}
