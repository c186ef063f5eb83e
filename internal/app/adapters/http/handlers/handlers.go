package handlers

import (
	"context"
	"modbot/internal/app/domain/velocity"
	"modbot/pkg/logger"
	"time"
)

type Chat interface {
	ConnectedChannels() []string
}

type BotList interface {
	Len() int
}

type VelocityRunner interface {
	RunPass(ctx context.Context, joined []string) (velocity.PassResult, error)
}

type BotListRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

type Deps struct {
	Chat      Chat
	Bots      BotList
	Velocity  VelocityRunner
	Refresher BotListRefresher
}

type Handlers struct {
	log     logger.Logger
	deps    Deps
	started time.Time
}

func New(log logger.Logger, deps Deps) *Handlers {
	return &Handlers{
		log:     log,
		deps:    deps,
		started: time.Now(),
	}
}
