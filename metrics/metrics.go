package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesPosted counts messages appended to any conversation.
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smart_roommate_messages_posted_total",
		Help: "Total messages posted",
	})

	// ConversationsCreated counts new conversations by kind (direct or group).
	ConversationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smart_roommate_conversations_created_total",
		Help: "Total conversations created by kind",
	}, []string{"kind"})

	// Notifications counts message notification fan-outs by result (sent or failed).
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smart_roommate_notifications_total",
		Help: "Message notification attempts by result",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
