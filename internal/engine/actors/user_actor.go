package actors

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"gator-forum/internal/auth"
	"gator-forum/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// UserSupervisor serializes registrations so the email check and the insert
// cannot interleave inside one process.
type UserSupervisor struct {
	auth       *auth.Service
	metrics    *utils.MetricsCollector
	logger     *slog.Logger
	registered int
}

type (
	RegisterUserMsg struct {
		Ctx   stdctx.Context
		Input auth.RegisterInput
	}

	GetUserCountMsg struct{}
)

func NewUserSupervisor(authService *auth.Service, metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	return &UserSupervisor{
		auth:    authService,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *UserSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		s.logger.Debug("user supervisor started")

	case *RegisterUserMsg:
		if abandoned(context, msg.Ctx) {
			s.logger.Debug("dropping expired registration")
			return
		}
		startTime := time.Now()
		session, err := s.auth.Register(msg.Ctx, msg.Input)
		if s.metrics != nil {
			s.metrics.AddOperationLatency("register", time.Since(startTime))
		}
		if err == nil {
			s.registered++
		}
		respond(context, session, err)

	case *GetUserCountMsg:
		context.Respond(s.registered)

	default:
		s.logger.Debug("user supervisor: unknown message", "type", fmt.Sprintf("%T", msg))
	}
}
