package waitinglist

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

const listCols = `id, clinic_id, effective_date, is_open, opening_time, closing_time,
	available_practitioners, slot_duration_minutes, version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, w *WaitingList) error {
	w.ID = uuid.New()
	w.VersionID = 1
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO waiting_list (
			id, clinic_id, effective_date, is_open, opening_time, closing_time,
			available_practitioners, slot_duration_minutes, version_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		w.ID, w.ClinicID, w.EffectiveDate, w.IsOpen, w.OpeningTime, w.ClosingTime,
		w.AvailablePractitioners, w.SlotDurationMinutes, w.VersionID,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*WaitingList, error) {
	return scanList(r.conn(ctx).QueryRow(ctx,
		`SELECT `+listCols+` FROM waiting_list WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, w *WaitingList) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE waiting_list SET
			effective_date=$3, is_open=$4, opening_time=$5, closing_time=$6,
			available_practitioners=$7, slot_duration_minutes=$8,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $2`,
		w.ID, w.VersionID,
		w.EffectiveDate, w.IsOpen, w.OpeningTime, w.ClosingTime,
		w.AvailablePractitioners, w.SlotDurationMinutes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	w.VersionID++
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM waiting_list WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*WaitingList, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM waiting_list`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+listCols+` FROM waiting_list ORDER BY effective_date DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	lists, err := collectLists(rows)
	if err != nil {
		return nil, 0, err
	}
	return lists, total, nil
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*WaitingList, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+listCols+` FROM waiting_list WHERE clinic_id = $1 ORDER BY effective_date DESC`,
		clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLists(rows)
}

// Time slots

func (r *repoPG) AddTimeSlots(ctx context.Context, slots []*TimeSlot) error {
	q := r.conn(ctx)
	for _, s := range slots {
		s.ID = uuid.New()
		if _, err := q.Exec(ctx, `
			INSERT INTO time_slot (id, waiting_list_id, start_at, end_at)
			VALUES ($1,$2,$3,$4)`,
			s.ID, s.WaitingListID, s.StartAt, s.EndAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetTimeSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	var s TimeSlot
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, waiting_list_id, start_at, end_at
		FROM time_slot WHERE id = $1`, id).Scan(&s.ID, &s.WaitingListID, &s.StartAt, &s.EndAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) ListTimeSlots(ctx context.Context, waitingListID uuid.UUID) ([]*TimeSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, waiting_list_id, start_at, end_at
		FROM time_slot WHERE waiting_list_id = $1 ORDER BY start_at`, waitingListID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []*TimeSlot{}
	for rows.Next() {
		var s TimeSlot
		if err := rows.Scan(&s.ID, &s.WaitingListID, &s.StartAt, &s.EndAt); err != nil {
			return nil, err
		}
		slots = append(slots, &s)
	}
	return slots, rows.Err()
}

func (r *repoPG) CountTimeSlots(ctx context.Context, waitingListID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM time_slot WHERE waiting_list_id = $1`, waitingListID).Scan(&n)
	return n, err
}

func (r *repoPG) DeleteTimeSlotsByList(ctx context.Context, waitingListID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM time_slot WHERE waiting_list_id = $1`, waitingListID)
	return err
}

func scanList(row pgx.Row) (*WaitingList, error) {
	var w WaitingList
	err := row.Scan(
		&w.ID, &w.ClinicID, &w.EffectiveDate, &w.IsOpen, &w.OpeningTime, &w.ClosingTime,
		&w.AvailablePractitioners, &w.SlotDurationMinutes, &w.VersionID, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func collectLists(rows pgx.Rows) ([]*WaitingList, error) {
	lists := []*WaitingList{}
	for rows.Next() {
		w, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, w)
	}
	return lists, rows.Err()
}
