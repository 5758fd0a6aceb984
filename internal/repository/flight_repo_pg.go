package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flight, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	ListAirports(ctx context.Context) ([]string, error)
	Create(ctx context.Context, f *domain.Flight) error
	Update(ctx context.Context, f *domain.Flight) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddAvailableSeats(ctx context.Context, id uuid.UUID, qty int) error
	OverwriteAvailableSeats(ctx context.Context, seats map[uuid.UUID]int) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, source, destination, departure_ts, arrival_ts, total_seats, available_seats, price_cents, version, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(&f.ID, &f.FlightNumber, &f.Source, &f.Destination, &f.DepartureTS, &f.ArrivalTS, &f.TotalSeats, &f.AvailableSeats, &f.PriceCents, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flight, error) {
	return scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
}

func (r *PGFlightRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFlights(rows)
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_ts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFlights(rows)
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := rows.Scan(&f.ID, &f.FlightNumber, &f.Source, &f.Destination, &f.DepartureTS, &f.ArrivalTS, &f.TotalSeats, &f.AvailableSeats, &f.PriceCents, &f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) ListAirports(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT source AS airport FROM flights UNION SELECT destination FROM flights ORDER BY airport`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	airports := make([]string, 0)
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.Version = 1
	return r.db.QueryRow(ctx, `INSERT INTO flights (id, flight_number, source, destination, departure_ts, arrival_ts, total_seats, available_seats, price_cents, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		f.ID, f.FlightNumber, f.Source, f.Destination, f.DepartureTS, f.ArrivalTS, f.TotalSeats, f.AvailableSeats, f.PriceCents, f.Version).
		Scan(&f.CreatedAt, &f.UpdatedAt)
}

// Update writes the merged row and bumps the version. The available_seats
// column is deliberately not part of the update: the cache counter owns live
// capacity and the reconciler owns the column.
func (r *PGFlightRepository) Update(ctx context.Context, f *domain.Flight) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET flight_number=$1, source=$2, destination=$3, departure_ts=$4, arrival_ts=$5, total_seats=$6, price_cents=$7, version=version+1, updated_at=now() WHERE id=$8`,
		f.FlightNumber, f.Source, f.Destination, f.DepartureTS, f.ArrivalTS, f.TotalSeats, f.PriceCents, f.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	f.Version++
	return nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGFlightRepository) AddAvailableSeats(ctx context.Context, id uuid.UUID, qty int) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET available_seats = available_seats + $1, updated_at = now() WHERE id=$2`, qty, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// OverwriteAvailableSeats flushes cache-derived counters into the seat column
// as one batch. The whole batch commits or rolls back together.
func (r *PGFlightRepository) OverwriteAvailableSeats(ctx context.Context, seats map[uuid.UUID]int) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for id, n := range seats {
		if _, err := tx.Exec(ctx, `UPDATE flights SET available_seats=$1, updated_at=now() WHERE id=$2`, n, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

var _ FlightRepository = (*PGFlightRepository)(nil)
