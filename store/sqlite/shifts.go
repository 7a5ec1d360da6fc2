package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brightpath/shift-engine/care"
)

// =============================================================================
// SHIFTS
// =============================================================================

const shiftCols = `id, staff_id, client_id, category, scheduled_start, scheduled_end,
	clock_in, clock_out, confirmed, locked, report_access, cancelled, visit_address,
	has_transport, t_ride_started, t_ride_ended, t_cancelled, t_distance_km,
	t_last_lat, t_last_lon, t_cur_lat, t_cur_lon, t_pickup_done, t_visit_done, t_drop_done`

func (s *Store) GetShift(ctx context.Context, id care.ShiftID) (*care.Shift, error) {
	return getShift(ctx, s.db, id)
}

func getShift(ctx context.Context, q querier, id care.ShiftID) (*care.Shift, error) {
	row := q.QueryRowContext(ctx, `SELECT `+shiftCols+` FROM shifts WHERE id = ?`, string(id))
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, care.ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shift %s: %w", id, err)
	}
	return sh, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanShift(row rowScanner) (*care.Shift, error) {
	var (
		sh                     care.Shift
		schedStart, schedEnd   string
		clockIn, clockOut      sql.NullString
		hasTransport           int
		started, ended, tcanc  int
		distance               float64
		lastLat, lastLon       sql.NullFloat64
		curLat, curLon         sql.NullFloat64
		pickup, visit, drop    int
		conf, lock, rep, shCan int
	)
	err := row.Scan(
		&sh.ID, &sh.StaffID, &sh.ClientID, &sh.Category, &schedStart, &schedEnd,
		&clockIn, &clockOut, &conf, &lock, &rep, &shCan, &sh.VisitAddress,
		&hasTransport, &started, &ended, &tcanc, &distance,
		&lastLat, &lastLon, &curLat, &curLon, &pickup, &visit, &drop,
	)
	if err != nil {
		return nil, err
	}

	if sh.ScheduledStart, err = parseTime(schedStart); err != nil {
		return nil, err
	}
	if sh.ScheduledEnd, err = parseTime(schedEnd); err != nil {
		return nil, err
	}
	if sh.ClockIn, err = parseTimePtr(clockIn); err != nil {
		return nil, err
	}
	if sh.ClockOut, err = parseTimePtr(clockOut); err != nil {
		return nil, err
	}
	sh.Confirmed = conf != 0
	sh.Locked = lock != 0
	sh.ReportAccess = rep != 0
	sh.Cancelled = shCan != 0

	if hasTransport != 0 {
		sh.Transport = &care.Transport{
			RideStarted: started != 0,
			RideEnded:   ended != 0,
			Cancelled:   tcanc != 0,
			DistanceKM:  distance,
			LastPos:     colsPos(lastLat, lastLon),
			CurrentPos:  colsPos(curLat, curLon),
			PickupDone:  pickup != 0,
			VisitDone:   visit != 0,
			DropDone:    drop != 0,
		}
	}
	return &sh, nil
}

func (s *Store) PutShift(ctx context.Context, sh *care.Shift) error {
	s.mu.Lock()
	err := putShift(ctx, s.db, sh)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyShift(ctx, sh.ID)
	return nil
}

func putShift(ctx context.Context, q querier, sh *care.Shift) error {
	tr := sh.Transport
	if tr == nil {
		tr = &care.Transport{}
	}
	lastLat, lastLon := posCols(tr.LastPos)
	curLat, curLon := posCols(tr.CurrentPos)

	_, err := q.ExecContext(ctx, `
		INSERT INTO shifts (`+shiftCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			staff_id = excluded.staff_id, client_id = excluded.client_id,
			category = excluded.category,
			scheduled_start = excluded.scheduled_start, scheduled_end = excluded.scheduled_end,
			clock_in = excluded.clock_in, clock_out = excluded.clock_out,
			confirmed = excluded.confirmed, locked = excluded.locked,
			report_access = excluded.report_access, cancelled = excluded.cancelled,
			visit_address = excluded.visit_address,
			has_transport = excluded.has_transport,
			t_ride_started = excluded.t_ride_started, t_ride_ended = excluded.t_ride_ended,
			t_cancelled = excluded.t_cancelled, t_distance_km = excluded.t_distance_km,
			t_last_lat = excluded.t_last_lat, t_last_lon = excluded.t_last_lon,
			t_cur_lat = excluded.t_cur_lat, t_cur_lon = excluded.t_cur_lon,
			t_pickup_done = excluded.t_pickup_done, t_visit_done = excluded.t_visit_done,
			t_drop_done = excluded.t_drop_done`,
		string(sh.ID), string(sh.StaffID), string(sh.ClientID), string(sh.Category),
		fmtTime(sh.ScheduledStart), fmtTime(sh.ScheduledEnd),
		fmtTimePtr(sh.ClockIn), fmtTimePtr(sh.ClockOut),
		boolInt(sh.Confirmed), boolInt(sh.Locked), boolInt(sh.ReportAccess), boolInt(sh.Cancelled),
		sh.VisitAddress,
		boolInt(sh.Transport != nil),
		boolInt(tr.RideStarted), boolInt(tr.RideEnded), boolInt(tr.Cancelled), tr.DistanceKM,
		lastLat, lastLon, curLat, curLon,
		boolInt(tr.PickupDone), boolInt(tr.VisitDone), boolInt(tr.DropDone),
	)
	if err != nil {
		return fmt.Errorf("put shift %s: %w", sh.ID, err)
	}
	return nil
}

func (s *Store) PatchShift(ctx context.Context, id care.ShiftID, p care.ShiftPatch) error {
	s.mu.Lock()
	err := patchShift(ctx, s.db, id, p)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyShift(ctx, id)
	return nil
}

// patchShift is read-modify-write: the typed patch is applied in Go so
// monotonicity rules live in exactly one place (care.ShiftPatch.Apply).
func patchShift(ctx context.Context, q querier, id care.ShiftID, p care.ShiftPatch) error {
	sh, err := getShift(ctx, q, id)
	if err != nil {
		return err
	}
	p.Apply(sh)
	return putShift(ctx, q, sh)
}

func (s *Store) ListShifts(ctx context.Context) ([]care.Shift, error) {
	return listShifts(ctx, s.db)
}

func listShifts(ctx context.Context, q querier) ([]care.Shift, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+shiftCols+` FROM shifts ORDER BY scheduled_start, id`)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var out []care.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

func (s *Store) WatchShift(ctx context.Context, id care.ShiftID) (<-chan care.Shift, care.CancelFunc, error) {
	if _, err := s.GetShift(ctx, id); err != nil {
		return nil, nil, err
	}
	return s.watch.subscribeShift(id)
}

// notifyShift pushes the committed state to subscribers.
func (s *Store) notifyShift(ctx context.Context, id care.ShiftID) {
	sh, err := s.GetShift(ctx, id)
	if err != nil {
		return
	}
	s.watch.publishShift(*sh)
}
