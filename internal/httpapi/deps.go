package httpapi

import (
	"go.uber.org/zap"

	"joblist-engine/internal/config"
	"joblist-engine/internal/events"
	"joblist-engine/internal/persist"
	"joblist-engine/internal/scheduler"
)

type Deps struct {
	Router *persist.Router
	Sched  *scheduler.Scheduler
	Hub    *events.Hub
	Cfg    config.Config
	Log    *zap.Logger
}
