package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types published by salonbook. Nothing in this repo consumes them;
// they record intent (reminder/notification senders would subscribe here).
const (
	EventAppointmentBooked        = "salon.appointment.booked.v1"
	EventAppointmentStatusChanged = "salon.appointment.status_changed.v1"
	EventProfileCreated           = "salon.profile.created.v1"
)
