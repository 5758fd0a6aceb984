package reservation

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/Domenick1991/flightcore/internal/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.Status = domain.BookingStatusPending
	}
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Confirm(ctx context.Context, id uuid.UUID, paymentRef string) (*domain.Booking, error) {
	args := m.Called(ctx, id, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Flight, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) ListAirports(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFlightRepository) Update(ctx context.Context, f *domain.Flight) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightRepository) AddAvailableSeats(ctx context.Context, id uuid.UUID, qty int) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *MockFlightRepository) OverwriteAvailableSeats(ctx context.Context, seats map[uuid.UUID]int) error {
	args := m.Called(ctx, seats)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetAvailableSeats(ctx context.Context, flightID uuid.UUID) (int, bool, error) {
	args := m.Called(ctx, flightID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockCache) SeedAvailableSeats(ctx context.Context, flightID uuid.UUID, seats int) error {
	args := m.Called(ctx, flightID, seats)
	return args.Error(0)
}

func (m *MockCache) ReserveSeats(ctx context.Context, flightID uuid.UUID, qty int) error {
	args := m.Called(ctx, flightID, qty)
	return args.Error(0)
}

func (m *MockCache) ReleaseSeats(ctx context.Context, flightID uuid.UUID, qty int) error {
	args := m.Called(ctx, flightID, qty)
	return args.Error(0)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) Acquire(ctx context.Context, flightID uuid.UUID) (string, error) {
	args := m.Called(ctx, flightID)
	return args.String(0), args.Error(1)
}

func (m *MockLock) Release(ctx context.Context, flightID uuid.UUID, token string) error {
	args := m.Called(ctx, flightID, token)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, bookingID uuid.UUID) (payment.Result, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(payment.Result), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishSeatUpdate(ctx context.Context, topic, flightID string) error {
	args := m.Called(ctx, topic, flightID)
	return args.Error(0)
}

type serviceMocks struct {
	bookings *MockBookingRepository
	flights  *MockFlightRepository
	cache    *MockCache
	locks    *MockLock
	gateway  *MockGateway
	producer *MockProducer
}

func newService() (*ReservationService, serviceMocks) {
	m := serviceMocks{
		bookings: &MockBookingRepository{},
		flights:  &MockFlightRepository{},
		cache:    &MockCache{},
		locks:    &MockLock{},
		gateway:  &MockGateway{},
		producer: &MockProducer{},
	}
	svc := NewReservationService(m.bookings, m.flights, m.cache, m.locks, m.gateway, m.producer, "seat_updates")
	return svc, m
}

func TestReserve_Success(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()
	userID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("token-1", nil).Once()
	m.locks.On("Release", ctx, flightID, "token-1").Return(nil).Once()
	m.cache.On("GetAvailableSeats", ctx, flightID).Return(5, true, nil).Once()
	m.cache.On("ReserveSeats", ctx, flightID, 2).Return(nil).Once()
	m.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	m.gateway.On("Charge", ctx, mock.AnythingOfType("uuid.UUID")).
		Return(payment.Result{Status: payment.StatusSuccess, Reference: "ref_abc"}, nil).Once()
	m.bookings.On("Confirm", ctx, mock.AnythingOfType("uuid.UUID"), "ref_abc").
		Return(&domain.Booking{FlightID: flightID, UserID: userID, Seats: 2, Status: domain.BookingStatusConfirmed, PaymentRef: "ref_abc"}, nil).Once()
	m.producer.On("PublishSeatUpdate", ctx, "seat_updates", flightID.String()).Return(nil).Once()

	booking, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: userID, Seats: 2})

	assert.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, "ref_abc", booking.PaymentRef)

	m.locks.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.bookings.AssertExpectations(t)
	m.gateway.AssertExpectations(t)
	m.producer.AssertExpectations(t)
}

func TestReserve_ValidationErrors(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	testCases := []struct {
		name  string
		input ReserveInput
	}{
		{name: "zero seats", input: ReserveInput{FlightID: uuid.New(), UserID: uuid.New(), Seats: 0}},
		{name: "negative seats", input: ReserveInput{FlightID: uuid.New(), UserID: uuid.New(), Seats: -3}},
		{name: "missing user", input: ReserveInput{FlightID: uuid.New(), Seats: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			booking, err := svc.Reserve(ctx, tc.input)
			assert.Error(t, err)
			assert.Nil(t, booking)
		})
	}
}

func TestReserve_LockTimeout(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("", domain.ErrLockTimeout).Once()

	booking, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: uuid.New(), Seats: 1})

	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Nil(t, booking)
	m.locks.AssertExpectations(t)
	m.cache.AssertNotCalled(t, "ReserveSeats")
	m.locks.AssertNotCalled(t, "Release")
}

func TestReserve_SeedsCounterOnCacheMiss(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("token-1", nil).Once()
	m.locks.On("Release", ctx, flightID, "token-1").Return(nil).Once()
	m.cache.On("GetAvailableSeats", ctx, flightID).Return(0, false, nil).Once()
	m.flights.On("GetByID", ctx, flightID).Return(&domain.Flight{ID: flightID, AvailableSeats: 7}, nil).Once()
	m.cache.On("SeedAvailableSeats", ctx, flightID, 7).Return(nil).Once()
	m.cache.On("ReserveSeats", ctx, flightID, 1).Return(nil).Once()
	m.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	m.gateway.On("Charge", ctx, mock.AnythingOfType("uuid.UUID")).
		Return(payment.Result{Status: payment.StatusSuccess, Reference: "ref_x"}, nil).Once()
	m.bookings.On("Confirm", ctx, mock.AnythingOfType("uuid.UUID"), "ref_x").
		Return(&domain.Booking{FlightID: flightID, Seats: 1, Status: domain.BookingStatusConfirmed}, nil).Once()
	m.producer.On("PublishSeatUpdate", ctx, "seat_updates", flightID.String()).Return(nil).Once()

	_, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: uuid.New(), Seats: 1})

	assert.NoError(t, err)
	m.cache.AssertExpectations(t)
	m.flights.AssertExpectations(t)
}

func TestReserve_FlightNotFoundAnywhere(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("token-1", nil).Once()
	m.locks.On("Release", ctx, flightID, "token-1").Return(nil).Once()
	m.cache.On("GetAvailableSeats", ctx, flightID).Return(0, false, nil).Once()
	m.flights.On("GetByID", ctx, flightID).Return(nil, domain.ErrNotFound).Once()

	booking, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: uuid.New(), Seats: 1})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, booking)
	m.locks.AssertExpectations(t)
}

func TestReserve_RejectedCapacity(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("token-1", nil).Once()
	m.locks.On("Release", ctx, flightID, "token-1").Return(nil).Once()
	m.cache.On("GetAvailableSeats", ctx, flightID).Return(1, true, nil).Once()
	m.cache.On("ReserveSeats", ctx, flightID, 4).Return(domain.ErrRejectedCapacity).Once()

	booking, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: uuid.New(), Seats: 4})

	assert.ErrorIs(t, err, domain.ErrRejectedCapacity)
	assert.Nil(t, booking)
	m.bookings.AssertNotCalled(t, "Create")
	m.locks.AssertExpectations(t)
}

// A CAS collision is surfaced to the caller, never retried internally.
func TestReserve_ConflictNotRetried(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("token-1", nil).Once()
	m.locks.On("Release", ctx, flightID, "token-1").Return(nil).Once()
	m.cache.On("GetAvailableSeats", ctx, flightID).Return(3, true, nil).Once()
	m.cache.On("ReserveSeats", ctx, flightID, 2).Return(domain.ErrConflict).Once()

	booking, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: uuid.New(), Seats: 2})

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Nil(t, booking)
	m.cache.AssertNumberOfCalls(t, "ReserveSeats", 1)
	m.bookings.AssertNotCalled(t, "Create")
	m.locks.AssertExpectations(t)
}

// Payment failure compensates the cache by exactly the reserved quantity and
// leaves the authoritative seat column untouched.
func TestReserve_PaymentFailureCompensates(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()
	userID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("token-1", nil).Once()
	m.locks.On("Release", ctx, flightID, "token-1").Return(nil).Once()
	m.cache.On("GetAvailableSeats", ctx, flightID).Return(5, true, nil).Once()
	m.cache.On("ReserveSeats", ctx, flightID, 3).Return(nil).Once()
	m.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	m.gateway.On("Charge", ctx, mock.AnythingOfType("uuid.UUID")).
		Return(payment.Result{Status: payment.StatusFailed, Reference: "ref_f"}, nil).Once()
	m.bookings.On("UpdateStatus", ctx, mock.AnythingOfType("uuid.UUID"), domain.BookingStatusPending, domain.BookingStatusFailed).
		Return(&domain.Booking{FlightID: flightID, UserID: userID, Seats: 3, Status: domain.BookingStatusFailed}, nil).Once()
	m.cache.On("ReleaseSeats", ctx, flightID, 3).Return(nil).Once()

	booking, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: userID, Seats: 3})

	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.NotNil(t, booking)
	assert.Equal(t, domain.BookingStatusFailed, booking.Status)

	m.cache.AssertExpectations(t)
	m.flights.AssertNotCalled(t, "AddAvailableSeats", mock.Anything, mock.Anything, mock.Anything)
	m.producer.AssertNotCalled(t, "PublishSeatUpdate")
	m.locks.AssertExpectations(t)
}

func TestReserve_IntentCreateFailureCompensates(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	flightID := uuid.New()

	m.locks.On("Acquire", ctx, flightID).Return("token-1", nil).Once()
	m.locks.On("Release", ctx, flightID, "token-1").Return(nil).Once()
	m.cache.On("GetAvailableSeats", ctx, flightID).Return(5, true, nil).Once()
	m.cache.On("ReserveSeats", ctx, flightID, 2).Return(nil).Once()
	m.bookings.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(errors.New("database error")).Once()
	m.cache.On("ReleaseSeats", ctx, flightID, 2).Return(nil).Once()

	booking, err := svc.Reserve(ctx, ReserveInput{FlightID: flightID, UserID: uuid.New(), Seats: 2})

	assert.Error(t, err)
	assert.Nil(t, booking)
	m.cache.AssertExpectations(t)
	m.gateway.AssertNotCalled(t, "Charge")
	m.locks.AssertExpectations(t)
}

func TestCancel_Success(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	bookingID := uuid.New()
	flightID := uuid.New()
	userID := uuid.New()

	confirmed := &domain.Booking{ID: bookingID, UserID: userID, FlightID: flightID, Seats: 2, Status: domain.BookingStatusConfirmed}
	cancelled := &domain.Booking{ID: bookingID, UserID: userID, FlightID: flightID, Seats: 2, Status: domain.BookingStatusCancelled}

	m.bookings.On("GetByID", ctx, bookingID).Return(confirmed, nil).Once()
	m.bookings.On("UpdateStatus", ctx, bookingID, domain.BookingStatusConfirmed, domain.BookingStatusCancelled).Return(cancelled, nil).Once()
	m.cache.On("ReleaseSeats", ctx, flightID, 2).Return(nil).Once()
	m.flights.On("AddAvailableSeats", ctx, flightID, 2).Return(nil).Once()

	booking, err := svc.Cancel(ctx, bookingID, userID)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, booking.Status)
	m.bookings.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.flights.AssertExpectations(t)
}

func TestCancel_ForbiddenReasons(t *testing.T) {
	bookingID := uuid.New()
	flightID := uuid.New()
	owner := uuid.New()

	testCases := []struct {
		name      string
		status    domain.BookingStatus
		requester uuid.UUID
		reason    domain.ForbiddenReason
	}{
		{name: "not owner", status: domain.BookingStatusConfirmed, requester: uuid.New(), reason: domain.ReasonNotOwner},
		{name: "already cancelled", status: domain.BookingStatusCancelled, requester: owner, reason: domain.ReasonAlreadyCancelled},
		{name: "pending", status: domain.BookingStatusPending, requester: owner, reason: domain.ReasonCannotCancelPending},
		{name: "failed", status: domain.BookingStatusFailed, requester: owner, reason: domain.ReasonCannotCancelFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newService()
			ctx := context.Background()
			m.bookings.On("GetByID", ctx, bookingID).
				Return(&domain.Booking{ID: bookingID, UserID: owner, FlightID: flightID, Seats: 1, Status: tc.status}, nil).Once()

			booking, err := svc.Cancel(ctx, bookingID, tc.requester)

			assert.Nil(t, booking)
			assert.ErrorIs(t, err, domain.ErrForbidden)
			var forbidden *domain.ForbiddenError
			assert.ErrorAs(t, err, &forbidden)
			assert.Equal(t, tc.reason, forbidden.Reason)

			// State must be left unchanged.
			m.bookings.AssertNotCalled(t, "UpdateStatus")
			m.cache.AssertNotCalled(t, "ReleaseSeats")
			m.flights.AssertNotCalled(t, "AddAvailableSeats")
		})
	}
}

// Two cancels racing on the same CONFIRMED booking: the loser's guarded
// update matches no row, so it must not credit the seats a second time.
func TestCancel_LostRaceDoesNotDoubleCredit(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	bookingID := uuid.New()
	flightID := uuid.New()
	userID := uuid.New()

	confirmed := &domain.Booking{ID: bookingID, UserID: userID, FlightID: flightID, Seats: 2, Status: domain.BookingStatusConfirmed}
	cancelled := &domain.Booking{ID: bookingID, UserID: userID, FlightID: flightID, Seats: 2, Status: domain.BookingStatusCancelled}

	// First read still sees CONFIRMED; the winning cancel commits in between.
	m.bookings.On("GetByID", ctx, bookingID).Return(confirmed, nil).Once()
	m.bookings.On("UpdateStatus", ctx, bookingID, domain.BookingStatusConfirmed, domain.BookingStatusCancelled).
		Return(nil, domain.ErrNotFound).Once()
	m.bookings.On("GetByID", ctx, bookingID).Return(cancelled, nil).Once()

	booking, err := svc.Cancel(ctx, bookingID, userID)

	assert.Nil(t, booking)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
	assert.Equal(t, domain.ReasonAlreadyCancelled, forbidden.Reason)

	m.cache.AssertNotCalled(t, "ReleaseSeats")
	m.flights.AssertNotCalled(t, "AddAvailableSeats")
	m.bookings.AssertExpectations(t)
}

func TestCancel_NotFound(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	bookingID := uuid.New()

	m.bookings.On("GetByID", ctx, bookingID).Return(nil, domain.ErrNotFound).Once()

	booking, err := svc.Cancel(ctx, bookingID, uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, booking)
}

func TestListBookings(t *testing.T) {
	svc, m := newService()
	ctx := context.Background()
	userID := uuid.New()

	expected := []domain.Booking{
		{ID: uuid.New(), UserID: userID, Status: domain.BookingStatusConfirmed},
		{ID: uuid.New(), UserID: userID, Status: domain.BookingStatusFailed},
	}
	m.bookings.On("ListByUser", ctx, userID).Return(expected, nil).Once()

	bookings, err := svc.ListBookings(ctx, userID)

	assert.NoError(t, err)
	assert.Equal(t, expected, bookings)
	m.bookings.AssertExpectations(t)
}
