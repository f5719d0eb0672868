package clinic

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

const clinicCols = `c.id, c.name, c.email, c.phone, c.opening_time, c.closing_time,
	c.avg_consult_minutes, c.active, c.created_by_user_id,
	c.version_id, c.created_at, c.updated_at,
	a.id, a.street_number, a.street, a.city, a.province, a.country, a.postal_code`

const clinicFrom = ` FROM clinic c JOIN address a ON a.id = c.address_id `

// Create inserts the address row first, then the clinic referencing it. The
// caller is expected to run it inside a transaction.
func (r *repoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	c.Address.ID = uuid.New()
	c.VersionID = 1

	q := r.conn(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO address (id, street_number, street, city, province, country, postal_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.Address.ID, c.Address.StreetNumber, c.Address.Street, c.Address.City,
		c.Address.Province, c.Address.Country, c.Address.PostalCode,
	)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO clinic (
			id, name, email, phone, opening_time, closing_time,
			avg_consult_minutes, active, address_id, created_by_user_id, version_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Email, c.Phone, c.OpeningTime, c.ClosingTime,
		c.AvgConsultMinutes, c.Active, c.Address.ID, c.CreatedByUserID, c.VersionID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clinicCols+clinicFrom+`WHERE c.id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clinicCols+clinicFrom+`WHERE LOWER(c.name) = LOWER($1)`, name))
}

func (r *repoPG) Update(ctx context.Context, c *Clinic) error {
	q := r.conn(ctx)
	tag, err := q.Exec(ctx, `
		UPDATE clinic SET
			name=$3, email=$4, phone=$5, opening_time=$6, closing_time=$7,
			avg_consult_minutes=$8, active=$9,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $2`,
		c.ID, c.VersionID,
		c.Name, c.Email, c.Phone, c.OpeningTime, c.ClosingTime,
		c.AvgConsultMinutes, c.Active,
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
	c.VersionID++

	_, err = q.Exec(ctx, `
		UPDATE address SET
			street_number=$2, street=$3, city=$4, province=$5, country=$6, postal_code=$7
		WHERE id = (SELECT address_id FROM clinic WHERE id = $1)`,
		c.ID, c.Address.StreetNumber, c.Address.Street, c.Address.City,
		c.Address.Province, c.Address.Country, c.Address.PostalCode,
	)
	return err
}

// Delete removes the clinic row and then its address. Waiting lists and
// consultations are removed first by the service cascade.
func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.conn(ctx)

	var addressID uuid.UUID
	err := q.QueryRow(ctx, `DELETE FROM clinic WHERE id = $1 RETURNING address_id`, id).Scan(&addressID)
	if db.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `DELETE FROM address WHERE id = $1`, addressID)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinic`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clinicCols+clinicFrom+`ORDER BY c.name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	clinics := []*Clinic{}
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		clinics = append(clinics, c)
	}
	return clinics, total, rows.Err()
}

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.OpeningTime, &c.ClosingTime,
		&c.AvgConsultMinutes, &c.Active, &c.CreatedByUserID,
		&c.VersionID, &c.CreatedAt, &c.UpdatedAt,
		&c.Address.ID, &c.Address.StreetNumber, &c.Address.Street, &c.Address.City,
		&c.Address.Province, &c.Address.Country, &c.Address.PostalCode,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
