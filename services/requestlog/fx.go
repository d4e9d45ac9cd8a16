package requestlog

import (
	"heartbeat-controlplane/pkg/taskname"
	"heartbeat-controlplane/services/heartbeat"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("requestlog.module",
	fx.Provide(
		NewService,
		providePublisher,
	),
)

// Worker registers the asynq handlers and the daily retention scheduler.
var Worker = fx.Module("requestlog.worker",
	fx.Provide(NewScheduler),
	fx.Invoke(
		registerHandlers,
		StartScheduler,
	),
)

func providePublisher(s *Service) heartbeat.RequestLogPublisher { return s }

func registerHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.RequestLogWrite, s.HandleWrite)
	mux.HandleFunc(taskname.RequestLogPurge, s.HandlePurge)
}
