package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres"
	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/memberrepo"
)

// Repo is a Postgres implementation of memberrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	memberUUID, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO members (id, display_name, registration_number, is_active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`,
			memberUUID,
			m.DisplayName,
			m.RegistrationNumber,
			m.IsActive,
			m.CreatedAt.UTC(),
			m.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				return memberrepo.ErrAlreadyExists
			}
			return err
		}
		for _, l := range m.Licenses {
			_, err := tx.Exec(ctx, `
				INSERT INTO member_licenses (member_id, class, expires_on)
				VALUES ($1,$2,$3)
				ON CONFLICT (member_id, class) DO UPDATE SET expires_on = EXCLUDED.expires_on
			`, memberUUID, string(l.Class), datePtr(l.ExpiresOn))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	memberUUID, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, display_name, registration_number, is_active, created_at, updated_at
		FROM members
		WHERE id = $1
	`, memberUUID)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memberrepo.Member{}, memberrepo.ErrNotFound
		}
		return memberrepo.Member{}, err
	}

	m.Licenses, err = loadLicenses(ctx, r.pool, memberUUID)
	if err != nil {
		return memberrepo.Member{}, err
	}
	return m, nil
}

func (r *Repo) SearchActiveByName(ctx context.Context, query string, limit int) ([]memberrepo.Member, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	if limit <= 0 {
		limit = 20
	}

	// Tokenized AND match over display name + registration number, mirroring
	// the memory adapter.
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, registration_number, is_active, created_at, updated_at
		FROM members
		WHERE is_active
		  AND (
		    SELECT bool_and(lower(display_name || ' ' || registration_number) LIKE '%' || tok || '%')
		    FROM unnest(string_to_array(lower($1), ' ')) AS tok
		    WHERE tok <> ''
		  )
		ORDER BY lower(display_name) ASC, id ASC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]memberrepo.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		memberUUID, err := uuid.Parse(string(out[i].ID))
		if err != nil {
			continue
		}
		out[i].Licenses, err = loadLicenses(ctx, r.pool, memberUUID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanMember(row pgx.Row) (memberrepo.Member, error) {
	var (
		id        uuid.UUID
		name      string
		regNo     string
		active    bool
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &regNo, &active, &createdAt, &updatedAt); err != nil {
		return memberrepo.Member{}, err
	}
	return memberrepo.Member{
		ID:                 domain.MemberID(id.String()),
		DisplayName:        name,
		RegistrationNumber: regNo,
		IsActive:           active,
		CreatedAt:          createdAt.UTC(),
		UpdatedAt:          updatedAt.UTC(),
	}, nil
}

func loadLicenses(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, memberUUID uuid.UUID) ([]domain.License, error) {
	rows, err := q.Query(ctx, `
		SELECT class, expires_on
		FROM member_licenses
		WHERE member_id = $1
		ORDER BY class ASC
	`, memberUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.License, 0)
	for rows.Next() {
		var class string
		var expires pgtype.Date
		if err := rows.Scan(&class, &expires); err != nil {
			return nil, err
		}
		out = append(out, domain.License{
			Class:     domain.LicenseClass(class),
			ExpiresOn: dateToTimePtr(expires),
		})
	}
	return out, rows.Err()
}

func datePtr(t *time.Time) pgtype.Date {
	var d pgtype.Date
	if t == nil {
		d.Valid = false
		return d
	}
	tt := t.UTC()
	d.Time = time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
	d.Valid = true
	return d
}

func dateToTimePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}
