package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const AggregateAppointment = "appointment"

// Event types double as Kafka topic names.
const (
	TypeAppointmentBooked        = "booking.appointment.booked.v1"
	TypeAppointmentStatusChanged = "booking.appointment.status_changed.v1"
	TypeAppointmentRescheduled   = "booking.appointment.rescheduled.v1"
	TypeAppointmentDeleted       = "booking.appointment.deleted.v1"
)

var AppointmentTopics = []string{
	TypeAppointmentBooked,
	TypeAppointmentStatusChanged,
	TypeAppointmentRescheduled,
	TypeAppointmentDeleted,
}

// Event is the domain event envelope written to the outbox in the same transaction as the
// state change it describes.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	BusinessID    string
	EventType     string
	Payload       []byte
}

// Record is an outbox row waiting to be relayed.
type Record struct {
	ID int64
	Event
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

// AppointmentPayload is the JSON body of every appointment event.
type AppointmentPayload struct {
	AppointmentID  string    `json:"appointment_id"`
	BusinessID     string    `json:"business_id"`
	CustomerID     string    `json:"customer_id"`
	ServiceID      string    `json:"service_id"`
	StaffID        string    `json:"staff_id"`
	Date           string    `json:"date"`
	Start          string    `json:"start_time"`
	End            string    `json:"end_time"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PreviousDate   string    `json:"previous_date,omitempty"`
	Source         string    `json:"source"`
	Price          string    `json:"price"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewAppointmentEvent(eventType string, p AppointmentPayload) (Event, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:       uuid.NewString(),
		AggregateType: AggregateAppointment,
		AggregateID:   p.AppointmentID,
		BusinessID:    p.BusinessID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}

func DecodeAppointmentPayload(raw []byte) (AppointmentPayload, error) {
	var p AppointmentPayload
	err := json.Unmarshal(raw, &p)
	return p, err
}
