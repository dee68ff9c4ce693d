package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"patient-management-api/internal/model"
)

const patientColumns = `id, name, email, address, date_of_birth, registered_date, created_at, updated_at`

func scanPatient(row pgx.Row, p *model.Patient) error {
	return row.Scan(&p.ID, &p.Name, &p.Email, &p.Address,
		&p.DateOfBirth, &p.RegisteredDate, &p.CreatedAt, &p.UpdatedAt)
}

func (s *Store) FindAll(ctx context.Context) ([]model.Patient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := scanPatient(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.Patient, error) {
	p := &model.Patient{}
	err := scanPatient(s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id), p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.existsByEmail(ctx, email, "")
}

func (s *Store) ExistsByEmailExcludingID(ctx context.Context, email, id string) (bool, error) {
	return s.existsByEmail(ctx, email, id)
}

func (s *Store) existsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	q := `SELECT EXISTS(SELECT 1 FROM patients WHERE email = $1`
	args := []any{email}

	if excludeID != "" {
		q += ` AND id != $2`
		args = append(args, excludeID)
	}
	q += `)`

	var exists bool
	err := s.pool.QueryRow(ctx, q, args...).Scan(&exists)
	return exists, err
}

// Save inserts p or overwrites the mutable columns of an existing row with
// the same id. Store-managed columns are written back into p.
func (s *Store) Save(ctx context.Context, p *model.Patient) error {
	var registered any
	if !p.RegisteredDate.IsZero() {
		registered = p.RegisteredDate
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO patients (id, name, email, address, date_of_birth, registered_date)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6::date, CURRENT_DATE))
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, email = EXCLUDED.email, address = EXCLUDED.address,
		     date_of_birth = EXCLUDED.date_of_birth, updated_at = NOW()
		 RETURNING registered_date, created_at, updated_at`,
		p.ID, p.Name, p.Email, p.Address, p.DateOfBirth, registered,
	).Scan(&p.RegisteredDate, &p.CreatedAt, &p.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// DeleteByID is a no-op for unknown ids.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}
