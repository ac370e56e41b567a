package worker

import (
	"github.com/spec-kit/tickets/internal/service"
)

// StartActivityWorker registers the activity log subscribers.
func StartActivityWorker(activity *service.ActivityService) {
	if activity == nil {
		return
	}
	activity.RegisterHandlers()
}
