package app

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/balejosg/openpath-sub004/internal/bridge"
	"github.com/balejosg/openpath-sub004/internal/domain"
	transport "github.com/balejosg/openpath-sub004/internal/http"
	"github.com/balejosg/openpath-sub004/internal/http/handlers"
	"github.com/balejosg/openpath-sub004/internal/hub"
	"github.com/balejosg/openpath-sub004/internal/metrics"
	"github.com/balejosg/openpath-sub004/internal/repository"
	"github.com/balejosg/openpath-sub004/internal/service"
	"github.com/balejosg/openpath-sub004/internal/ticker"
)

type Config struct {
	DSN         string
	InstanceID  string
	ChannelName string
}

type App struct {
	handler http.Handler
	bridge  *bridge.Bridge
	ticker  *ticker.BoundaryTicker
}

func New(db *sql.DB, cfg Config, logger *log.Logger) *App {
	registry := prometheus.NewRegistry()

	txManager := repository.NewPostgresTxManager(db)
	scheduleService := service.NewScheduleService(txManager)
	classroomService := service.NewClassroomService(txManager)
	resolver := service.NewClassroomResolver(txManager)

	eventHub := hub.New(resolver, logger, metrics.NewHubMetrics(registry))

	var publisher *service.ChangePublisher
	relayHandler := func(ctx context.Context, event domain.RelayEvent) {
		publisher.HandleRelayEvent(ctx, event)
	}
	eventBridge := bridge.New(bridge.Config{
		DSN:         cfg.DSN,
		ChannelName: cfg.ChannelName,
		InstanceID:  cfg.InstanceID,
	}, db, relayHandler, logger, metrics.NewBridgeMetrics(registry))
	publisher = service.NewChangePublisher(eventHub, eventBridge)

	// Every instance evaluates boundaries itself, so a tick publishes
	// locally only; relaying it would double-deliver on the others.
	boundaryTicker := ticker.New(scheduleService, func(ctx context.Context, classroomID uuid.UUID, at time.Time) {
		eventHub.PublishClassroomChanged(ctx, classroomID, at)
	}, logger)

	scheduleHandler := handlers.NewScheduleHandler(scheduleService, publisher)
	controlHandler := handlers.NewControlHandler(classroomService, publisher)
	eventsHandler := handlers.NewEventsHandler(eventHub, resolver, logger)

	router := transport.NewRouter(
		scheduleHandler,
		controlHandler,
		eventsHandler,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)

	return &App{
		handler: router,
		bridge:  eventBridge,
		ticker:  boundaryTicker,
	}
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) StartBridge(ctx context.Context) error {
	return a.bridge.EnsureStarted(ctx)
}

func (a *App) StopBridge() {
	a.bridge.Stop()
}

func (a *App) RunTickOnce(ctx context.Context, now time.Time) error {
	return a.ticker.RunTickOnce(ctx, now)
}
