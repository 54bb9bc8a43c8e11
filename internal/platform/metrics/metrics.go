package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	appointmentCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "appointment_created_total",
			Help:      "Count of appointments created.",
		},
	)

	appointmentStatusChanged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "appointment_status_changed_total",
			Help:      "Count of appointment status changes by target status.",
		},
		[]string{"status"},
	)

	scheduleConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "schedule_conflict_total",
			Help:      "Count of bookings rejected because of a schedule conflict.",
		},
	)

	notificationSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "notification_sent_total",
			Help:      "Count of notification delivery attempts by outcome.",
		},
		[]string{"channel", "outcome"},
	)

	jobRun = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Name:      "job_run_total",
			Help:      "Count of background job runs by job and outcome.",
		},
		[]string{"job", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(appointmentCreated, appointmentStatusChanged,
			scheduleConflict, notificationSent, jobRun)
	})
}

func IncAppointmentCreated() {
	appointmentCreated.Inc()
}

func IncAppointmentStatusChanged(status string) {
	appointmentStatusChanged.WithLabelValues(status).Inc()
}

func IncScheduleConflict() {
	scheduleConflict.Inc()
}

func IncNotificationSent(channel, outcome string) {
	notificationSent.WithLabelValues(channel, outcome).Inc()
}

func IncJobRun(job, outcome string) {
	jobRun.WithLabelValues(job, outcome).Inc()
}
