package consultation

import (
	"context"
	"fmt"

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

const consultCols = `id, patient_id, time_slot_id, waiting_list_id,
	planned_start, planned_end, actual_start, actual_end,
	status, version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	c.VersionID = 1
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultation (
			id, patient_id, time_slot_id, waiting_list_id,
			planned_start, planned_end, actual_start, actual_end,
			status, version_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.TimeSlotID, c.WaitingListID,
		c.PlannedStart, c.PlannedEnd, c.ActualStart, c.ActualEnd,
		c.Status, c.VersionID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: unknown patient, time slot, or waiting list reference", ErrInvalid)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultCols+` FROM consultation WHERE id = $1`, id))
}

func (r *repoPG) GetByTimeSlot(ctx context.Context, timeSlotID uuid.UUID) (*Consultation, error) {
	return scanConsult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultCols+` FROM consultation WHERE time_slot_id = $1`, timeSlotID))
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+consultCols+` FROM consultation WHERE patient_id = $1 ORDER BY planned_start`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConsults(rows)
}

func (r *repoPG) Update(ctx context.Context, c *Consultation) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultation SET
			patient_id=$3, time_slot_id=$4, waiting_list_id=$5,
			planned_start=$6, planned_end=$7, actual_start=$8, actual_end=$9,
			status=$10, version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $2`,
		c.ID, c.VersionID,
		c.PatientID, c.TimeSlotID, c.WaitingListID,
		c.PlannedStart, c.PlannedEnd, c.ActualStart, c.ActualEnd,
		c.Status,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: unknown patient, time slot, or waiting list reference", ErrInvalid)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	c.VersionID++
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultation WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultation`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+consultCols+` FROM consultation ORDER BY planned_start NULLS LAST LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	consults, err := collectConsults(rows)
	if err != nil {
		return nil, 0, err
	}
	return consults, total, nil
}

func (r *repoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultation WHERE patient_id = $1`, patientID)
	return err
}

func (r *repoPG) DeleteByWaitingList(ctx context.Context, waitingListID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultation WHERE waiting_list_id = $1`, waitingListID)
	return err
}

func scanConsult(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.PatientID, &c.TimeSlotID, &c.WaitingListID,
		&c.PlannedStart, &c.PlannedEnd, &c.ActualStart, &c.ActualEnd,
		&c.Status, &c.VersionID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectConsults(rows pgx.Rows) ([]*Consultation, error) {
	consults := []*Consultation{}
	for rows.Next() {
		c, err := scanConsult(rows)
		if err != nil {
			return nil, err
		}
		consults = append(consults, c)
	}
	return consults, rows.Err()
}
