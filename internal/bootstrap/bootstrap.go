package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"

	datainadapter "evseg/internal/modules/data/adapter/in"
	dataoutadapter "evseg/internal/modules/data/adapter/out"
	dataservice "evseg/internal/modules/data/service"
	datausecase "evseg/internal/modules/data/usecase"
	plugininadapter "evseg/internal/modules/plugin/adapter/in"
	pluginoutadapter "evseg/internal/modules/plugin/adapter/out"
	pluginservice "evseg/internal/modules/plugin/service"
	pluginusecase "evseg/internal/modules/plugin/usecase"
	trialinadapter "evseg/internal/modules/trial/adapter/in"
	trialoutadapter "evseg/internal/modules/trial/adapter/out"
	trialdto "evseg/internal/modules/trial/dto"
	trialservice "evseg/internal/modules/trial/service"
	trialusecase "evseg/internal/modules/trial/usecase"
	"evseg/internal/platform/clock"
	"evseg/internal/platform/config"
	"evseg/internal/platform/eventloop"
	"evseg/internal/platform/id"
	"evseg/internal/platform/tx"
	trialview "evseg/internal/ui/views/trial"
)

type App struct {
	TrialCLI  trialinadapter.CLIHandler
	TrialTUI  trialinadapter.TUIHandler
	DataCLI   datainadapter.CLIHandler
	PluginCLI plugininadapter.CLIHandler
	Logger    hclog.Logger

	host *trialoutadapter.LoopHost
	db   *sql.DB
}

func New(cfg config.Config, logger hclog.Logger) (*App, error) {
	clk := clock.SystemClock{}

	db, err := dataoutadapter.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	projector, err := dataoutadapter.NewSQLiteRecordProjector(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("new record projector: %w", err)
	}
	dataUC := datausecase.NewInteractor(dataservice.NewDataService(
		clk,
		dataoutadapter.NewJSONLRecordStore(cfg.DataPath),
		projector,
		tx.NewSQLManager(db),
		logger,
	))

	host := trialoutadapter.NewLoopHost(eventloop.New(), logger, trialoutadapter.LoopHostOptions{
		TickInterval:    cfg.TimeUpdateInterval,
		DefaultDuration: cfg.DefaultVideoSeconds,
		Prober:          trialoutadapter.NewFFProbe(cfg.FFProbePath),
		Clock:           clk,
	})
	trials := trialservice.NewTrialService(host, logger)
	simulator := trialservice.NewSimulator(
		trialoutadapter.NewRandomizer(uint64(clk.Now().UnixNano())),
		host,
		trials,
		host,
		logger,
	)
	trialUC := trialusecase.NewInteractor(
		trials,
		simulator,
		trialoutadapter.NewYAMLTimelineStore(cfg.TimelineSpanMS),
		host,
		trialoutadapter.NewHTMLRenderer(),
		dataUC,
		id.UUID{},
		logger,
	)

	pluginUC := pluginusecase.NewInteractor(pluginservice.NewPluginService(
		pluginoutadapter.NewFileManifestStore(cfg.PluginsPath),
		pluginoutadapter.NewGRPCHost(logger),
		logger,
	))

	return &App{
		TrialCLI:  trialinadapter.NewCLIHandler(trialUC),
		TrialTUI:  trialinadapter.NewTUIHandler(trialUC),
		DataCLI:   datainadapter.NewCLIHandler(dataUC),
		PluginCLI: plugininadapter.NewCLIHandler(pluginUC),
		Logger:    logger,
		host:      host,
		db:        db,
	}, nil
}

// Start runs the trial host loop until ctx ends. The returned function blocks
// until the loop has drained.
func (a *App) Start(ctx context.Context) func() {
	go func() {
		if err := a.host.Run(ctx); err != nil && ctx.Err() == nil {
			a.Logger.Error("trial host stopped", "error", err)
		}
	}()
	return func() { <-a.host.Done() }
}

func (a *App) Close() error {
	return a.db.Close()
}

// RunTUI runs a timeline on the terminal display and returns its output once
// the program exits.
func RunTUI(ctx context.Context, app *App, opts trialview.Options) (trialdto.RunOutput, error) {
	model := trialview.New(ctx, app.TrialTUI, opts)
	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return trialdto.RunOutput{}, err
	}
	m, ok := final.(trialview.Model)
	if !ok {
		return trialdto.RunOutput{}, fmt.Errorf("unexpected tui model %T", final)
	}
	return m.Result()
}
