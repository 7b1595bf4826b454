package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
)

// Memory is a process-local Store used when no database is configured and by tests.
// Transactions are serialized by a single mutex and roll back by restoring a snapshot.
type Memory struct {
	memQueries
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

type state struct {
	users        map[string]model.User
	businesses   map[string]model.Business
	services     map[string]model.Service
	staff        map[string]model.Staff
	availability map[string]model.Availability
	customers    map[string]model.Customer
	appointments map[string]model.Appointment
	events       []outbox.Record
	lastEventID  int64
}

func newState() *state {
	return &state{
		users:        map[string]model.User{},
		businesses:   map[string]model.Business{},
		services:     map[string]model.Service{},
		staff:        map[string]model.Staff{},
		availability: map[string]model.Availability{},
		customers:    map[string]model.Customer{},
		appointments: map[string]model.Appointment{},
	}
}

func (s *state) clone() *state {
	return &state{
		users:        maps.Clone(s.users),
		businesses:   maps.Clone(s.businesses),
		services:     maps.Clone(s.services),
		staff:        maps.Clone(s.staff),
		availability: maps.Clone(s.availability),
		customers:    maps.Clone(s.customers),
		appointments: maps.Clone(s.appointments),
		events:       slices.Clone(s.events),
		lastEventID:  s.lastEventID,
	}
}

func NewMemory() *Memory {
	m := &Memory{st: newState(), now: time.Now}
	m.memQueries = memQueries{m: m}
	return m
}

func (m *Memory) InTx(ctx context.Context, fn func(q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(memQueries{m: m, inTx: true}); err != nil {
		m.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// ProcessUnpublished makes Memory an outbox.Source.
func (m *Memory) ProcessUnpublished(ctx context.Context, limit int, fn func(context.Context, []outbox.Record) error) error {
	m.mu.Lock()
	var batch []outbox.Record
	for _, r := range m.st.events {
		if len(batch) == limit {
			break
		}
		batch = append(batch, r)
	}
	m.mu.Unlock()

	// The lock is released while fn runs because local sinks write back into the store.
	if err := fn(ctx, batch); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	published := map[int64]bool{}
	for _, r := range batch {
		published[r.ID] = true
	}
	m.st.events = slices.DeleteFunc(m.st.events, func(r outbox.Record) bool { return published[r.ID] })
	return nil
}

// PendingEvents returns the unpublished outbox records.
func (m *Memory) PendingEvents() []outbox.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.st.events)
}

type memQueries struct {
	m    *Memory
	inTx bool
}

// lock takes the store mutex unless the caller already holds it inside InTx.
func (q memQueries) lock() func() {
	if q.inTx {
		return func() {}
	}
	q.m.mu.Lock()
	return q.m.mu.Unlock
}

func (q memQueries) st() *state { return q.m.st }

func ptr[T any](v T) *T { return &v }

// --- businesses ---

func (q memQueries) CreateBusiness(_ context.Context, b *model.Business) error {
	defer q.lock()()
	for _, other := range q.st().businesses {
		if other.Slug == b.Slug {
			return fmt.Errorf("%w: businesses_slug_key", ErrDuplicate)
		}
		if other.OwnerID == b.OwnerID {
			return fmt.Errorf("%w: businesses_owner_id_key", ErrDuplicate)
		}
	}
	b.CreatedAt = q.m.now()
	b.UpdatedAt = b.CreatedAt
	q.st().businesses[b.ID] = *b
	return nil
}

func (q memQueries) GetBusiness(_ context.Context, id string) (*model.Business, error) {
	defer q.lock()()
	if b, ok := q.st().businesses[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (q memQueries) GetBusinessBySlug(_ context.Context, slug string) (*model.Business, error) {
	defer q.lock()()
	for _, b := range q.st().businesses {
		if b.Slug == slug {
			return ptr(b), nil
		}
	}
	return nil, nil
}

func (q memQueries) GetBusinessByOwner(_ context.Context, ownerID string) (*model.Business, error) {
	defer q.lock()()
	for _, b := range q.st().businesses {
		if b.OwnerID == ownerID {
			return ptr(b), nil
		}
	}
	return nil, nil
}

func (q memQueries) UpdateBusiness(_ context.Context, b *model.Business) error {
	defer q.lock()()
	if _, ok := q.st().businesses[b.ID]; !ok {
		return nil
	}
	for _, other := range q.st().businesses {
		if other.ID != b.ID && other.Slug == b.Slug {
			return fmt.Errorf("%w: businesses_slug_key", ErrDuplicate)
		}
	}
	b.UpdatedAt = q.m.now()
	q.st().businesses[b.ID] = *b
	return nil
}

// --- services ---

func (q memQueries) CreateService(_ context.Context, s *model.Service) error {
	defer q.lock()()
	s.CreatedAt = q.m.now()
	s.UpdatedAt = s.CreatedAt
	q.st().services[s.ID] = *s
	return nil
}

func (q memQueries) GetService(_ context.Context, businessID, id string) (*model.Service, error) {
	defer q.lock()()
	if s, ok := q.st().services[id]; ok && s.BusinessID == businessID {
		return &s, nil
	}
	return nil, nil
}

func (q memQueries) ListServices(_ context.Context, businessID string, activeOnly bool) ([]model.Service, error) {
	defer q.lock()()
	var out []model.Service
	for _, s := range q.st().services {
		if s.BusinessID == businessID && (s.Active || !activeOnly) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.Service) int { return compareNameID(a.Name, a.ID, b.Name, b.ID) })
	return out, nil
}

func (q memQueries) UpdateService(_ context.Context, s *model.Service) error {
	defer q.lock()()
	if cur, ok := q.st().services[s.ID]; ok && cur.BusinessID == s.BusinessID {
		s.UpdatedAt = q.m.now()
		q.st().services[s.ID] = *s
	}
	return nil
}

func (q memQueries) DeleteService(_ context.Context, businessID, id string) error {
	defer q.lock()()
	if s, ok := q.st().services[id]; ok && s.BusinessID == businessID {
		delete(q.st().services, id)
	}
	return nil
}

// --- staff ---

func (q memQueries) CreateStaff(_ context.Context, s *model.Staff) error {
	defer q.lock()()
	s.CreatedAt = q.m.now()
	s.UpdatedAt = s.CreatedAt
	q.st().staff[s.ID] = *s
	return nil
}

func (q memQueries) GetStaff(_ context.Context, businessID, id string) (*model.Staff, error) {
	defer q.lock()()
	if s, ok := q.st().staff[id]; ok && s.BusinessID == businessID {
		return &s, nil
	}
	return nil, nil
}

func (q memQueries) ListStaff(_ context.Context, businessID string, activeOnly bool) ([]model.Staff, error) {
	defer q.lock()()
	var out []model.Staff
	for _, s := range q.st().staff {
		if s.BusinessID == businessID && (s.Active || !activeOnly) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.Staff) int { return compareNameID(a.Name, a.ID, b.Name, b.ID) })
	return out, nil
}

func (q memQueries) UpdateStaff(_ context.Context, s *model.Staff) error {
	defer q.lock()()
	if cur, ok := q.st().staff[s.ID]; ok && cur.BusinessID == s.BusinessID {
		s.UpdatedAt = q.m.now()
		q.st().staff[s.ID] = *s
	}
	return nil
}

// DeleteStaff cascades to the staff member's availability like the foreign key does.
func (q memQueries) DeleteStaff(_ context.Context, businessID, id string) error {
	defer q.lock()()
	if s, ok := q.st().staff[id]; ok && s.BusinessID == businessID {
		delete(q.st().staff, id)
		maps.DeleteFunc(q.st().availability, func(_ string, a model.Availability) bool { return a.StaffID == id })
	}
	return nil
}

// --- availability ---

func (q memQueries) CreateAvailability(_ context.Context, a *model.Availability) error {
	defer q.lock()()
	a.CreatedAt = q.m.now()
	q.st().availability[a.ID] = *a
	return nil
}

func (q memQueries) GetAvailability(_ context.Context, businessID, id string) (*model.Availability, error) {
	defer q.lock()()
	if a, ok := q.st().availability[id]; ok && a.BusinessID == businessID {
		return &a, nil
	}
	return nil, nil
}

func (q memQueries) ListAvailability(_ context.Context, businessID, staffID string) ([]model.Availability, error) {
	defer q.lock()()
	var out []model.Availability
	for _, a := range q.st().availability {
		if a.BusinessID == businessID && (staffID == "" || a.StaffID == staffID) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Availability) int {
		if c := strings.Compare(a.StaffID, b.StaffID); c != 0 {
			return c
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek - b.DayOfWeek
		}
		return a.StartMinute - b.StartMinute
	})
	return out, nil
}

func (q memQueries) UpdateAvailability(_ context.Context, a *model.Availability) error {
	defer q.lock()()
	if cur, ok := q.st().availability[a.ID]; ok && cur.BusinessID == a.BusinessID {
		q.st().availability[a.ID] = *a
	}
	return nil
}

func (q memQueries) DeleteAvailability(_ context.Context, businessID, id string) error {
	defer q.lock()()
	if a, ok := q.st().availability[id]; ok && a.BusinessID == businessID {
		delete(q.st().availability, id)
	}
	return nil
}

// --- customers ---

func (q memQueries) CreateCustomer(_ context.Context, c *model.Customer) error {
	defer q.lock()()
	c.CreatedAt = q.m.now()
	q.st().customers[c.ID] = *c
	return nil
}

func (q memQueries) GetCustomer(_ context.Context, businessID, id string) (*model.Customer, error) {
	defer q.lock()()
	if c, ok := q.st().customers[id]; ok && c.BusinessID == businessID {
		return &c, nil
	}
	return nil, nil
}

func (q memQueries) FindCustomerByEmail(_ context.Context, businessID, email string) (*model.Customer, error) {
	if email == "" {
		return nil, nil
	}
	defer q.lock()()
	return q.oldestCustomer(businessID, func(c model.Customer) bool { return c.Email == email }), nil
}

func (q memQueries) FindCustomerByPhone(_ context.Context, businessID, phone string) (*model.Customer, error) {
	if phone == "" {
		return nil, nil
	}
	defer q.lock()()
	return q.oldestCustomer(businessID, func(c model.Customer) bool { return c.Phone == phone }), nil
}

func (q memQueries) oldestCustomer(businessID string, match func(model.Customer) bool) *model.Customer {
	var found *model.Customer
	for _, c := range q.st().customers {
		if c.BusinessID != businessID || !match(c) {
			continue
		}
		if found == nil || c.CreatedAt.Before(found.CreatedAt) || (c.CreatedAt.Equal(found.CreatedAt) && c.ID < found.ID) {
			found = ptr(c)
		}
	}
	return found
}

func (q memQueries) ListCustomers(_ context.Context, businessID string) ([]model.Customer, error) {
	defer q.lock()()
	var out []model.Customer
	for _, c := range q.st().customers {
		if c.BusinessID == businessID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.Customer) int { return compareNameID(a.Name, a.ID, b.Name, b.ID) })
	return out, nil
}

// --- appointments ---

func (q memQueries) CreateAppointment(_ context.Context, a *model.Appointment) error {
	defer q.lock()()
	a.CreatedAt = q.m.now()
	a.UpdatedAt = a.CreatedAt
	q.st().appointments[a.ID] = *a
	return nil
}

func (q memQueries) GetAppointment(_ context.Context, businessID, id string) (*model.Appointment, error) {
	defer q.lock()()
	if a, ok := q.st().appointments[id]; ok && a.BusinessID == businessID {
		return &a, nil
	}
	return nil, nil
}

func (q memQueries) ListAppointments(_ context.Context, businessID string, f AppointmentFilter) ([]model.Appointment, error) {
	defer q.lock()()
	var out []model.Appointment
	for _, a := range q.st().appointments {
		if a.BusinessID != businessID ||
			(f.Date != "" && a.Date != f.Date) ||
			(f.StaffID != "" && a.StaffID != f.StaffID) ||
			(f.Status != "" && a.Status != f.Status) {
			continue
		}
		out = append(out, a)
	}
	sortAppointments(out)
	return out, nil
}

func (q memQueries) ListStaffDay(_ context.Context, staffID, date string) ([]model.Appointment, error) {
	defer q.lock()()
	var out []model.Appointment
	for _, a := range q.st().appointments {
		if a.StaffID == staffID && a.Date == date && a.Status != model.StatusCancelled {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (q memQueries) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	defer q.lock()()
	if cur, ok := q.st().appointments[a.ID]; ok && cur.BusinessID == a.BusinessID {
		a.UpdatedAt = q.m.now()
		q.st().appointments[a.ID] = *a
	}
	return nil
}

func (q memQueries) DeleteAppointment(_ context.Context, businessID, id string) error {
	defer q.lock()()
	if a, ok := q.st().appointments[id]; ok && a.BusinessID == businessID {
		delete(q.st().appointments, id)
	}
	return nil
}

func (q memQueries) CountAppointments(_ context.Context, businessID string, ref Reference) (int, error) {
	defer q.lock()()
	n := 0
	for _, a := range q.st().appointments {
		if a.BusinessID == businessID &&
			(ref.ServiceID == "" || a.ServiceID == ref.ServiceID) &&
			(ref.StaffID == "" || a.StaffID == ref.StaffID) &&
			(ref.CustomerID == "" || a.CustomerID == ref.CustomerID) {
			n++
		}
	}
	return n, nil
}

func (q memQueries) MarkAppointmentCounted(_ context.Context, businessID, id string) error {
	defer q.lock()()
	if a, ok := q.st().appointments[id]; ok && a.BusinessID == businessID {
		a.Counted = true
		q.st().appointments[id] = a
	}
	return nil
}

func (q memQueries) AppointmentStats(_ context.Context, businessID, today string) (Stats, error) {
	defer q.lock()()
	st := Stats{ByStatus: map[model.Status]int{}}
	for _, a := range q.st().appointments {
		if a.BusinessID != businessID {
			continue
		}
		st.Total++
		st.ByStatus[a.Status]++
		if a.Date == today {
			st.Today++
		}
		// YYYY-MM-DD compares chronologically as a string.
		if a.Date >= today && a.Open() {
			st.Upcoming++
		}
		if a.Status == model.StatusCompleted {
			cents, err := model.PriceCents(a.Price)
			if err == nil {
				st.RevenueCents += cents
			}
		}
	}
	for _, c := range q.st().customers {
		if c.BusinessID == businessID {
			st.Customers++
		}
	}
	return st, nil
}

// --- users ---

func (q memQueries) CreateUser(_ context.Context, u *model.User) error {
	defer q.lock()()
	for _, other := range q.st().users {
		if other.Username == u.Username {
			return fmt.Errorf("%w: users_username_key", ErrDuplicate)
		}
		if other.Email == u.Email {
			return fmt.Errorf("%w: users_email_key", ErrDuplicate)
		}
	}
	u.CreatedAt = q.m.now()
	q.st().users[u.ID] = *u
	return nil
}

func (q memQueries) GetUser(_ context.Context, id string) (*model.User, error) {
	defer q.lock()()
	if u, ok := q.st().users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (q memQueries) GetUserByLogin(_ context.Context, login string) (*model.User, error) {
	defer q.lock()()
	var byEmail *model.User
	for _, u := range q.st().users {
		if u.Username == login {
			return ptr(u), nil
		}
		if u.Email == strings.ToLower(login) {
			byEmail = ptr(u)
		}
	}
	return byEmail, nil
}

// --- events ---

func (q memQueries) AppendEvent(_ context.Context, evt outbox.Event) error {
	defer q.lock()()
	st := q.st()
	st.lastEventID++
	st.events = append(st.events, outbox.Record{ID: st.lastEventID, Event: evt, CreatedAt: q.m.now()})
	return nil
}

func sortAppointments(out []model.Appointment) {
	slices.SortFunc(out, func(a, b model.Appointment) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if a.StartMinute != b.StartMinute {
			return a.StartMinute - b.StartMinute
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func compareNameID(aName, aID, bName, bID string) int {
	if c := strings.Compare(aName, bName); c != 0 {
		return c
	}
	return strings.Compare(aID, bID)
}
