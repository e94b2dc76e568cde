package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/club-scheduler/internal/booking"
	"github.com/example/club-scheduler/internal/db"
)

// Store is the Postgres persistence layer: users, their standing
// preferences, and the summary of completed bookings.
type Store struct {
	db *db.DB
}

func New(d *db.DB) *Store { return &Store{db: d} }

type User struct {
	ID             string
	Email          string
	SealedPassword string
	CreatedAt      time.Time
}

// PreferenceRow is one stored standing rule. Times and companions are
// kept as CSV columns; weekday stays symbolic so rows read naturally in
// psql.
type PreferenceRow struct {
	ID         string
	UserID     string
	ClassType  string
	Weekday    string
	Times      []string
	Companions []string
}

// UpsertUser creates the user or refreshes the sealed password of an
// existing one, returning the user id either way.
func (s *Store) UpsertUser(ctx context.Context, email, sealedPassword string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
INSERT INTO users (id, email, sealed_password)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET sealed_password = EXCLUDED.sealed_password
RETURNING id`,
		uuid.NewString(), email, sealedPassword,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, email, sealed_password, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.SealedPassword, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddPreference stores or replaces the rule for one (user, class type,
// weekday) triple.
func (s *Store) AddPreference(ctx context.Context, p PreferenceRow) error {
	return s.db.Exec(ctx, `
INSERT INTO preferences (id, user_id, class_type, weekday, times, companions)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, class_type, weekday)
DO UPDATE SET times = EXCLUDED.times, companions = EXCLUDED.companions`,
		uuid.NewString(), p.UserID, p.ClassType, p.Weekday, joinCSV(p.Times), joinCSV(p.Companions),
	)
}

// PreferencesByUser returns the user's rules grouped by class type, in
// insertion order within each group.
func (s *Store) PreferencesByUser(ctx context.Context, userID string) (map[string][]PreferenceRow, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, user_id, class_type, weekday, times, companions
FROM preferences
WHERE user_id = $1
ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]PreferenceRow)
	for rows.Next() {
		var p PreferenceRow
		var times, companions string
		if err := rows.Scan(&p.ID, &p.UserID, &p.ClassType, &p.Weekday, &times, &companions); err != nil {
			return nil, err
		}
		p.Times = splitCSV(times)
		p.Companions = splitCSV(companions)
		out[p.ClassType] = append(out[p.ClassType], p)
	}
	return out, rows.Err()
}

// RecordBooking satisfies booking.Recorder.
func (s *Store) RecordBooking(ctx context.Context, rec booking.BookingRecord) error {
	return s.db.Exec(ctx, `
INSERT INTO bookings (id, user_email, class_type, class_id, class_date, class_time, booked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), rec.UserEmail, rec.ClassType, rec.ClassID, rec.Date, rec.Time, rec.BookedAt,
	)
}
