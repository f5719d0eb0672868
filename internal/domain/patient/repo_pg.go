package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinique/clinique/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, last_name, first_name, gender, email,
	insurance_number, postal_code, birth_date, age, user_id,
	version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.VersionID = 1
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, last_name, first_name, gender, email,
			insurance_number, postal_code, birth_date, age, user_id, version_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.LastName, p.FirstName, p.Gender, p.Email,
		p.InsuranceNumber, p.PostalCode, p.BirthDate, p.Age, p.UserID, p.VersionID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE user_id = $1`, userID))
}

func (r *repoPG) GetByInsuranceNumber(ctx context.Context, number string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE UPPER(insurance_number) = UPPER($1)`, number))
}

// Update performs an optimistic write: the row is only touched when the
// caller's version matches, and the version is bumped in the same statement.
func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			last_name=$3, first_name=$4, gender=$5, email=$6,
			insurance_number=$7, postal_code=$8, birth_date=$9, age=$10,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $2`,
		p.ID, p.VersionID,
		p.LastName, p.FirstName, p.Gender, p.Email,
		p.InsuranceNumber, p.PostalCode, p.BirthDate, p.Age,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	p.VersionID++
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

// Dependents

func (r *repoPG) AddDependent(ctx context.Context, d *Dependent) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO dependent (
			id, last_name, first_name, gender, email,
			insurance_number, birth_date, age, patient_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		d.ID, d.LastName, d.FirstName, d.Gender, d.Email,
		d.InsuranceNumber, d.BirthDate, d.Age, d.PatientID,
	).Scan(&d.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *repoPG) GetDependent(ctx context.Context, id uuid.UUID) (*Dependent, error) {
	return scanDependent(r.conn(ctx).QueryRow(ctx, `
		SELECT id, last_name, first_name, gender, email,
			insurance_number, birth_date, age, patient_id, created_at
		FROM dependent WHERE id = $1`, id))
}

func (r *repoPG) GetDependents(ctx context.Context, patientID uuid.UUID) ([]*Dependent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, last_name, first_name, gender, email,
			insurance_number, birth_date, age, patient_id, created_at
		FROM dependent WHERE patient_id = $1 ORDER BY last_name, first_name`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deps := []*Dependent{}
	for rows.Next() {
		d, err := scanDependent(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func (r *repoPG) RemoveDependent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM dependent WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) RemoveDependentsByPatient(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM dependent WHERE patient_id = $1`, patientID)
	return err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.LastName, &p.FirstName, &p.Gender, &p.Email,
		&p.InsuranceNumber, &p.PostalCode, &p.BirthDate, &p.Age, &p.UserID,
		&p.VersionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanDependent(row pgx.Row) (*Dependent, error) {
	var d Dependent
	err := row.Scan(
		&d.ID, &d.LastName, &d.FirstName, &d.Gender, &d.Email,
		&d.InsuranceNumber, &d.BirthDate, &d.Age, &d.PatientID, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
