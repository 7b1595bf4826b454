package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/bookly/libs/db"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
)

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the pgx-backed Store.
type Postgres struct {
	pgQueries
	pool *db.Pool
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pgQueries: pgQueries{q: pool}, pool: pool}
}

// InTx runs fn at serializable isolation and retries it on serialization failures.
func (p *Postgres) InTx(ctx context.Context, fn func(q Queries) error) error {
	return p.pool.InTx(ctx, db.Serializable, func(tx pgx.Tx) error {
		return fn(pgQueries{q: tx})
	})
}

type pgQueries struct {
	q dbtx
}

// validID filters ids that Postgres would reject as malformed uuids; they cannot exist.
func validID(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func parseDate(raw string) (time.Time, error) {
	d, err := availability.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", raw, err)
	}
	return d, nil
}

func wrapWriteErr(err error) error {
	switch db.PgCode(err) {
	case "":
		return err
	case db.CodeUniqueViolation:
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	case db.CodeExclusionViolation:
		return &errs.ConflictError{}
	default:
		return err
	}
}

// --- businesses ---

const businessCols = `id, owner_id, name, slug, industry, email, phone, address, timezone, active, created_at, updated_at`

func scanBusiness(row pgx.Row) (*model.Business, error) {
	var b model.Business
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Slug, &b.Industry, &b.Email, &b.Phone, &b.Address,
		&b.Timezone, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (p pgQueries) CreateBusiness(ctx context.Context, b *model.Business) error {
	err := p.q.QueryRow(ctx, `
		INSERT INTO businesses (id, owner_id, name, slug, industry, email, phone, address, timezone, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, b.ID, b.OwnerID, b.Name, b.Slug, b.Industry, b.Email, b.Phone, b.Address, b.Timezone, b.Active,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	if !validID(id) {
		return nil, nil
	}
	return scanBusiness(p.q.QueryRow(ctx, `SELECT `+businessCols+` FROM businesses WHERE id = $1`, id))
}

func (p pgQueries) GetBusinessBySlug(ctx context.Context, slug string) (*model.Business, error) {
	return scanBusiness(p.q.QueryRow(ctx, `SELECT `+businessCols+` FROM businesses WHERE slug = $1`, slug))
}

func (p pgQueries) GetBusinessByOwner(ctx context.Context, ownerID string) (*model.Business, error) {
	if !validID(ownerID) {
		return nil, nil
	}
	return scanBusiness(p.q.QueryRow(ctx, `SELECT `+businessCols+` FROM businesses WHERE owner_id = $1`, ownerID))
}

func (p pgQueries) UpdateBusiness(ctx context.Context, b *model.Business) error {
	err := p.q.QueryRow(ctx, `
		UPDATE businesses
		SET name = $2, slug = $3, industry = $4, email = $5, phone = $6, address = $7,
			timezone = $8, active = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, b.ID, b.Name, b.Slug, b.Industry, b.Email, b.Phone, b.Address, b.Timezone, b.Active).Scan(&b.UpdatedAt)
	return wrapWriteErr(err)
}

// --- services ---

const serviceCols = `id, business_id, name, description, price_cents, duration_minutes, active, created_at, updated_at`

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	var cents int64
	err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &cents, &s.DurationMinutes, &s.Active,
		&s.CreatedAt, &s.UpdatedAt)
	s.Price = model.FormatCents(cents)
	return s, err
}

func (p pgQueries) CreateService(ctx context.Context, s *model.Service) error {
	cents, err := model.PriceCents(s.Price)
	if err != nil {
		return err
	}
	err = p.q.QueryRow(ctx, `
		INSERT INTO services (id, business_id, name, description, price_cents, duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, s.ID, s.BusinessID, s.Name, s.Description, cents, s.DurationMinutes, s.Active).Scan(&s.CreatedAt, &s.UpdatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) GetService(ctx context.Context, businessID, id string) (*model.Service, error) {
	if !validID(businessID, id) {
		return nil, nil
	}
	s, err := scanService(p.q.QueryRow(ctx, `
		SELECT `+serviceCols+` FROM services WHERE business_id = $1 AND id = $2
	`, businessID, id))
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p pgQueries) ListServices(ctx context.Context, businessID string, activeOnly bool) ([]model.Service, error) {
	if !validID(businessID) {
		return nil, nil
	}
	rows, err := p.q.Query(ctx, `
		SELECT `+serviceCols+` FROM services
		WHERE business_id = $1 AND (active OR NOT $2)
		ORDER BY name, id
	`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanService)
}

func (p pgQueries) UpdateService(ctx context.Context, s *model.Service) error {
	cents, err := model.PriceCents(s.Price)
	if err != nil {
		return err
	}
	err = p.q.QueryRow(ctx, `
		UPDATE services
		SET name = $3, description = $4, price_cents = $5, duration_minutes = $6, active = $7, updated_at = now()
		WHERE business_id = $1 AND id = $2
		RETURNING updated_at
	`, s.BusinessID, s.ID, s.Name, s.Description, cents, s.DurationMinutes, s.Active).Scan(&s.UpdatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) DeleteService(ctx context.Context, businessID, id string) error {
	return p.deleteScoped(ctx, "services", businessID, id)
}

// --- staff ---

const staffCols = `id, business_id, name, email, phone, role, active, created_at, updated_at`

func scanStaff(row pgx.Row) (model.Staff, error) {
	var s model.Staff
	err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Email, &s.Phone, &s.Role, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (p pgQueries) CreateStaff(ctx context.Context, s *model.Staff) error {
	err := p.q.QueryRow(ctx, `
		INSERT INTO staff (id, business_id, name, email, phone, role, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, s.ID, s.BusinessID, s.Name, s.Email, s.Phone, s.Role, s.Active).Scan(&s.CreatedAt, &s.UpdatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) GetStaff(ctx context.Context, businessID, id string) (*model.Staff, error) {
	if !validID(businessID, id) {
		return nil, nil
	}
	s, err := scanStaff(p.q.QueryRow(ctx, `
		SELECT `+staffCols+` FROM staff WHERE business_id = $1 AND id = $2
	`, businessID, id))
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p pgQueries) ListStaff(ctx context.Context, businessID string, activeOnly bool) ([]model.Staff, error) {
	if !validID(businessID) {
		return nil, nil
	}
	rows, err := p.q.Query(ctx, `
		SELECT `+staffCols+` FROM staff
		WHERE business_id = $1 AND (active OR NOT $2)
		ORDER BY name, id
	`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaff)
}

func (p pgQueries) UpdateStaff(ctx context.Context, s *model.Staff) error {
	err := p.q.QueryRow(ctx, `
		UPDATE staff
		SET name = $3, email = $4, phone = $5, role = $6, active = $7, updated_at = now()
		WHERE business_id = $1 AND id = $2
		RETURNING updated_at
	`, s.BusinessID, s.ID, s.Name, s.Email, s.Phone, s.Role, s.Active).Scan(&s.UpdatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) DeleteStaff(ctx context.Context, businessID, id string) error {
	return p.deleteScoped(ctx, "staff", businessID, id)
}

// --- availability ---

const availabilityCols = `id, business_id, staff_id, day_of_week, start_minute, end_minute, active, created_at`

func scanAvailability(row pgx.Row) (model.Availability, error) {
	var a model.Availability
	err := row.Scan(&a.ID, &a.BusinessID, &a.StaffID, &a.DayOfWeek, &a.StartMinute, &a.EndMinute, &a.Active, &a.CreatedAt)
	return a, err
}

func (p pgQueries) CreateAvailability(ctx context.Context, a *model.Availability) error {
	err := p.q.QueryRow(ctx, `
		INSERT INTO availability (id, business_id, staff_id, day_of_week, start_minute, end_minute, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, a.ID, a.BusinessID, a.StaffID, a.DayOfWeek, a.StartMinute, a.EndMinute, a.Active).Scan(&a.CreatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) GetAvailability(ctx context.Context, businessID, id string) (*model.Availability, error) {
	if !validID(businessID, id) {
		return nil, nil
	}
	a, err := scanAvailability(p.q.QueryRow(ctx, `
		SELECT `+availabilityCols+` FROM availability WHERE business_id = $1 AND id = $2
	`, businessID, id))
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (p pgQueries) ListAvailability(ctx context.Context, businessID, staffID string) ([]model.Availability, error) {
	if !validID(businessID) || (staffID != "" && !validID(staffID)) {
		return nil, nil
	}
	rows, err := p.q.Query(ctx, `
		SELECT `+availabilityCols+` FROM availability
		WHERE business_id = $1 AND ($2 = '' OR staff_id::text = $2)
		ORDER BY staff_id, day_of_week, start_minute
	`, businessID, staffID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAvailability)
}

func (p pgQueries) UpdateAvailability(ctx context.Context, a *model.Availability) error {
	_, err := p.q.Exec(ctx, `
		UPDATE availability
		SET day_of_week = $3, start_minute = $4, end_minute = $5, active = $6
		WHERE business_id = $1 AND id = $2
	`, a.BusinessID, a.ID, a.DayOfWeek, a.StartMinute, a.EndMinute, a.Active)
	return wrapWriteErr(err)
}

func (p pgQueries) DeleteAvailability(ctx context.Context, businessID, id string) error {
	return p.deleteScoped(ctx, "availability", businessID, id)
}

// --- customers ---

const customerCols = `id, business_id, name, email, phone, notes, created_at`

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.BusinessID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt)
	return c, err
}

func (p pgQueries) CreateCustomer(ctx context.Context, c *model.Customer) error {
	err := p.q.QueryRow(ctx, `
		INSERT INTO customers (id, business_id, name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, c.ID, c.BusinessID, c.Name, c.Email, c.Phone, c.Notes).Scan(&c.CreatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) GetCustomer(ctx context.Context, businessID, id string) (*model.Customer, error) {
	if !validID(businessID, id) {
		return nil, nil
	}
	return p.findCustomer(ctx, `business_id = $1 AND id = $2`, businessID, id)
}

func (p pgQueries) FindCustomerByEmail(ctx context.Context, businessID, email string) (*model.Customer, error) {
	if email == "" || !validID(businessID) {
		return nil, nil
	}
	return p.findCustomer(ctx, `business_id = $1 AND email = $2`, businessID, email)
}

func (p pgQueries) FindCustomerByPhone(ctx context.Context, businessID, phone string) (*model.Customer, error) {
	if phone == "" || !validID(businessID) {
		return nil, nil
	}
	return p.findCustomer(ctx, `business_id = $1 AND phone = $2`, businessID, phone)
}

// findCustomer returns the oldest match so repeated lookups are stable.
func (p pgQueries) findCustomer(ctx context.Context, where string, args ...any) (*model.Customer, error) {
	c, err := scanCustomer(p.q.QueryRow(ctx, `
		SELECT `+customerCols+` FROM customers WHERE `+where+`
		ORDER BY created_at, id
		LIMIT 1
	`, args...))
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p pgQueries) ListCustomers(ctx context.Context, businessID string) ([]model.Customer, error) {
	if !validID(businessID) {
		return nil, nil
	}
	rows, err := p.q.Query(ctx, `
		SELECT `+customerCols+` FROM customers WHERE business_id = $1 ORDER BY name, id
	`, businessID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCustomer)
}

// --- appointments ---

const appointmentCols = `id, business_id, customer_id, service_id, staff_id, appointment_date::text,
	start_minute, end_minute, status, source, notes, cancellation_reason, price_cents, counted, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status, source string
	var cents int64
	err := row.Scan(&a.ID, &a.BusinessID, &a.CustomerID, &a.ServiceID, &a.StaffID, &a.Date,
		&a.StartMinute, &a.EndMinute, &status, &source, &a.Notes, &a.CancelReason, &cents, &a.Counted,
		&a.CreatedAt, &a.UpdatedAt)
	a.Status = model.Status(status)
	a.Source = model.Source(source)
	a.Price = model.FormatCents(cents)
	return a, err
}

func (p pgQueries) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	date, err := parseDate(a.Date)
	if err != nil {
		return err
	}
	cents, err := model.PriceCents(a.Price)
	if err != nil {
		return err
	}
	err = p.q.QueryRow(ctx, `
		INSERT INTO appointments
			(id, business_id, customer_id, service_id, staff_id, appointment_date, start_minute, end_minute,
			 status, source, notes, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, a.ID, a.BusinessID, a.CustomerID, a.ServiceID, a.StaffID, date, a.StartMinute, a.EndMinute,
		string(a.Status), string(a.Source), a.Notes, cents).Scan(&a.CreatedAt, &a.UpdatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) GetAppointment(ctx context.Context, businessID, id string) (*model.Appointment, error) {
	if !validID(businessID, id) {
		return nil, nil
	}
	a, err := scanAppointment(p.q.QueryRow(ctx, `
		SELECT `+appointmentCols+` FROM appointments WHERE business_id = $1 AND id = $2
	`, businessID, id))
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (p pgQueries) ListAppointments(ctx context.Context, businessID string, f AppointmentFilter) ([]model.Appointment, error) {
	if !validID(businessID) {
		return nil, nil
	}
	where := []string{"business_id = $1"}
	args := []any{businessID}
	if f.Date != "" {
		date, err := parseDate(f.Date)
		if err != nil {
			return nil, err
		}
		args = append(args, date)
		where = append(where, fmt.Sprintf("appointment_date = $%d", len(args)))
	}
	if f.StaffID != "" {
		if !validID(f.StaffID) {
			return nil, nil
		}
		args = append(args, f.StaffID)
		where = append(where, fmt.Sprintf("staff_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	rows, err := p.q.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY appointment_date, start_minute, id
	`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (p pgQueries) ListStaffDay(ctx context.Context, staffID, date string) ([]model.Appointment, error) {
	if !validID(staffID) {
		return nil, nil
	}
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := p.q.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE staff_id = $1 AND appointment_date = $2 AND status <> 'cancelled'
		ORDER BY start_minute, id
	`, staffID, d)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (p pgQueries) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	date, err := parseDate(a.Date)
	if err != nil {
		return err
	}
	err = p.q.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $3, start_minute = $4, end_minute = $5, status = $6, notes = $7,
			cancellation_reason = $8, updated_at = now()
		WHERE business_id = $1 AND id = $2
		RETURNING updated_at
	`, a.BusinessID, a.ID, date, a.StartMinute, a.EndMinute, string(a.Status), a.Notes, a.CancelReason).Scan(&a.UpdatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) DeleteAppointment(ctx context.Context, businessID, id string) error {
	return p.deleteScoped(ctx, "appointments", businessID, id)
}

func (p pgQueries) CountAppointments(ctx context.Context, businessID string, ref Reference) (int, error) {
	if !validID(businessID) {
		return 0, nil
	}
	var n int
	err := p.q.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE business_id = $1
			AND ($2 = '' OR service_id::text = $2)
			AND ($3 = '' OR staff_id::text = $3)
			AND ($4 = '' OR customer_id::text = $4)
	`, businessID, ref.ServiceID, ref.StaffID, ref.CustomerID).Scan(&n)
	return n, err
}

func (p pgQueries) MarkAppointmentCounted(ctx context.Context, businessID, id string) error {
	if !validID(businessID, id) {
		return nil
	}
	_, err := p.q.Exec(ctx, `
		UPDATE appointments SET counted = true WHERE business_id = $1 AND id = $2
	`, businessID, id)
	return err
}

func (p pgQueries) AppointmentStats(ctx context.Context, businessID, today string) (Stats, error) {
	st := Stats{ByStatus: map[model.Status]int{}}
	if !validID(businessID) {
		return st, nil
	}
	day, err := parseDate(today)
	if err != nil {
		return st, err
	}

	rows, err := p.q.Query(ctx, `
		SELECT status,
			count(*),
			count(*) FILTER (WHERE appointment_date = $2),
			count(*) FILTER (WHERE appointment_date >= $2 AND status IN ('pending', 'confirmed')),
			COALESCE(sum(price_cents) FILTER (WHERE status = 'completed'), 0)
		FROM appointments
		WHERE business_id = $1
		GROUP BY status
	`, businessID, day)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var total, onDay, upcoming int
		var revenue int64
		if err := rows.Scan(&status, &total, &onDay, &upcoming, &revenue); err != nil {
			return st, err
		}
		st.ByStatus[model.Status(status)] = total
		st.Total += total
		st.Today += onDay
		st.Upcoming += upcoming
		st.RevenueCents += revenue
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = p.q.QueryRow(ctx, `SELECT count(*) FROM customers WHERE business_id = $1`, businessID).Scan(&st.Customers)
	return st, err
}

// --- users ---

const userCols = `id, username, email, password_hash, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p pgQueries) CreateUser(ctx context.Context, u *model.User) error {
	err := p.q.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Username, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	return wrapWriteErr(err)
}

func (p pgQueries) GetUser(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, nil
	}
	return scanUser(p.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (p pgQueries) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return scanUser(p.q.QueryRow(ctx, `
		SELECT `+userCols+` FROM users WHERE username = $1 OR email = lower($1)
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, login))
}

// --- events ---

func (p pgQueries) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return outbox.Insert(ctx, p.q, evt)
}

// --- helpers ---

// deleteScoped removes one tenant-scoped row. Deleting a missing row is not an error.
func (p pgQueries) deleteScoped(ctx context.Context, table, businessID, id string) error {
	if !validID(businessID, id) {
		return nil
	}
	_, err := p.q.Exec(ctx, `DELETE FROM `+table+` WHERE business_id = $1 AND id = $2`, businessID, id)
	if db.PgCode(err) == db.CodeForeignKeyViolation {
		return &errs.InUseError{Entity: strings.TrimSuffix(table, "s"), ID: id, Reason: "referenced by appointments"}
	}
	return err
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
