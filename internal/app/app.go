// Package app assembles the controller from configuration and supervises its tasks.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"smoke_controller/internal/config"
	"smoke_controller/internal/fan"
	"smoke_controller/internal/handlers"
	"smoke_controller/internal/history"
	"smoke_controller/internal/logger"
	"smoke_controller/internal/pit"
	"smoke_controller/internal/probe"
	"smoke_controller/internal/repository"
	"smoke_controller/internal/repository/db"
	"smoke_controller/internal/server"
	"smoke_controller/internal/service"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App is a fully wired controller.
type App struct {
	cfg *config.Config
	log *logger.Logger
	db  *sql.DB

	history  *history.Store
	events   *service.EventLogService
	probes   []*probe.Worker
	fan      *fan.Worker
	pit      *pit.Pit // nil unless a sim driver is configured
	loop     *service.ControlLoop
	auth     *service.AuthService
	services *service.Service
	handler  *handlers.Handler
	server   *server.Server
}

// New opens the session database and builds every component. Nothing runs until Run.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	a := &App{cfg: cfg, log: log, db: conn, server: &server.Server{}}

	repos := repository.NewRepository(conn)
	a.events = service.NewEventLogService(repos.EventRepo, 0, log)
	a.history = history.NewStore(cfg.ProbeIDs(), cfg.HistoryOptions(), log)

	if usesSim(cfg) {
		a.pit = pit.New(cfg.Sim.PitConfig(), cfg.FoodProbeIDs(), log)
	}

	entries := make([]service.ProbeEntry, 0, len(cfg.Probes))
	simProbes := map[string]service.ProbeFaulter{}
	for _, pc := range cfg.Probes {
		p, err := a.newProbe(pc)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if sp, ok := p.(*probe.Simulated); ok {
			simProbes[pc.ID] = sp
		}
		w := probe.NewWorker(p, pc.WorkerConfig(), a.history, a.events, log)
		if pc.Enabled {
			w.Enable()
		}
		a.probes = append(a.probes, w)
		entries = append(entries, service.ProbeEntry{Worker: w, DoneC: pc.DoneC})
	}
	probeSet := service.NewProbeSet(entries...)

	act, err := a.newActuator()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.fan = fan.NewWorker(act, cfg.Fan.WorkerConfig(), a.events, log)

	var sim *service.SimulationService
	if a.pit != nil {
		var fanFaults service.FanFaulter
		if cfg.Fan.Driver == config.DriverSim {
			fanFaults = a.pit
		}
		sim = service.NewSimulationService(simProbes, fanFaults, log)
	}

	target := service.NewTargetHolder(cfg.Control.InitialTargetC, cfg.Control.Enabled, time.Now().UTC())
	a.loop = service.NewControlLoop(service.LoopConfig{
		Interval:           cfg.Control.Interval,
		FaultRetryInterval: cfg.Control.FaultRetryInterval,
		Params:             cfg.Maintain.Params(),
	}, probeSet, a.history, target, a.fan, a.events, log)

	authOpts := service.AuthOptions{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL}
	a.auth = service.NewAuthService(repos.Operators, authOpts)
	a.services = service.NewService(repos, service.Runtime{
		Probes:  probeSet,
		History: a.history,
		Target:  target,
		Loop:    a.loop,
		Events:  a.events,
		Sim:     sim,
	}, authOpts, log)

	a.handler = handlers.NewHandler(a.services, log)
	a.handler.AllowOrigins(cfg.CORS.AllowedOrigins)
	return a, nil
}

func (a *App) newProbe(pc config.ProbeConfig) (probe.Probe, error) {
	switch pc.Driver {
	case config.DriverThermistor:
		return probe.NewThermistor(pc.ID, probe.NewSysfsADC(pc.Address, pc.ADCBits), pc.MinC, pc.MaxC), nil
	case config.DriverSim:
		return probe.NewSimulated(pc.ID, a.pit), nil
	default:
		return nil, fmt.Errorf("probe %s: unknown driver %q", pc.ID, pc.Driver)
	}
}

func (a *App) newActuator() (fan.Actuator, error) {
	switch a.cfg.Fan.Driver {
	case config.DriverPWM:
		return fan.NewPWMActuator(a.cfg.Fan.Address, a.cfg.Fan.PeriodNS, a.cfg.Fan.Duty()), nil
	case config.DriverSim:
		return a.pit, nil
	default:
		return nil, fmt.Errorf("unknown fan driver %q", a.cfg.Fan.Driver)
	}
}

func usesSim(cfg *config.Config) bool {
	if cfg.Fan.Driver == config.DriverSim {
		return true
	}
	for _, p := range cfg.Probes {
		if p.Driver == config.DriverSim {
			return true
		}
	}
	return false
}

// Handler returns the HTTP API with CORS applied.
func (a *App) Handler() http.Handler {
	return server.WithCORS(a.handler.InitRoutes(), a.cfg.CORS.AllowedOrigins)
}

// Run seeds operators, then runs the workers, the control loop and the HTTP server
// until ctx is canceled or one of them fails. The fan is driven off before Run
// returns, and the event log is drained after every producer has stopped.
func (a *App) Run(ctx context.Context) error {
	ops := make([]service.Operator, 0, len(a.cfg.Auth.Operators))
	for _, o := range a.cfg.Auth.Operators {
		ops = append(ops, service.Operator{Username: o.Username, Password: o.Password})
	}
	n, err := a.auth.SeedOperators(ctx, ops)
	if err != nil {
		return fmt.Errorf("seed operators: %w", err)
	}
	a.log.Infow("operators_seeded", "created", n, "configured", len(ops))

	eventsCtx, stopEvents := context.WithCancel(context.Background())
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		_ = a.events.Run(eventsCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range a.probes {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error { return a.fan.Run(gctx) })
	g.Go(func() error { return a.loop.Run(gctx) })
	if a.pit != nil {
		g.Go(func() error { return a.pit.Run(gctx, a.cfg.Sim.Tick) })
	}

	handler := a.Handler()
	g.Go(func() error {
		a.log.Infow("http_server_started", "port", a.cfg.Port)
		if err := a.server.Run(a.cfg.Port, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Infow("shutting_down")
		return a.server.Shutdown(sctx)
	})

	err = g.Wait()
	stopEvents()
	<-eventsDone
	return err
}

// Close releases the session database.
func (a *App) Close() error {
	return a.db.Close()
}
