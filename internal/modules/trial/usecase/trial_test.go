package usecase_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	datadto "evseg/internal/modules/data/dto"
	trialout "evseg/internal/modules/trial/adapter/out"
	"evseg/internal/modules/trial/domain"
	"evseg/internal/modules/trial/dto"
	trialin "evseg/internal/modules/trial/port/in"
	"evseg/internal/modules/trial/service"
	"evseg/internal/modules/trial/usecase"
	apperrors "evseg/internal/platform/errors"
	"evseg/internal/platform/eventloop"
	"evseg/internal/platform/logging"
)

type fixedID struct{}

func (fixedID) New() string { return "run-1" }

type fakeData struct {
	records []datadto.RecordInput
}

func (f *fakeData) Record(_ context.Context, input datadto.RecordInput) (datadto.RecordOutput, error) {
	f.records = append(f.records, input)
	return datadto.RecordOutput{RunID: input.RunID, Index: input.Index, Mode: input.Mode}, nil
}

func (f *fakeData) ListRuns(context.Context) ([]datadto.RunSummaryOutput, error) { return nil, nil }

func (f *fakeData) ListRecords(context.Context, string) ([]datadto.RecordOutput, error) {
	return nil, nil
}

func (f *fakeData) Export(context.Context, datadto.ExportInput) (datadto.ExportOutput, error) {
	return datadto.ExportOutput{}, nil
}

func (f *fakeData) Reindex(context.Context, datadto.ReindexInput) error { return nil }

func newInteractor(t *testing.T, defaultDuration float64) (trialin.Usecase, *fakeData) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := logging.Discard()
	host := trialout.NewLoopHost(eventloop.New(), logger, trialout.LoopHostOptions{
		TickInterval:    5 * time.Millisecond,
		DefaultDuration: defaultDuration,
	})
	go func() { _ = host.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-host.Done()
	})
	trials := service.NewTrialService(host, logger)
	simulator := service.NewSimulator(trialout.NewRandomizer(7), host, trials, host, logger)
	data := &fakeData{}
	uc := usecase.NewInteractor(
		trials,
		simulator,
		trialout.NewYAMLTimelineStore(domain.DefaultTimelineSpanMS),
		host,
		trialout.NewHTMLRenderer(),
		data,
		fixedID{},
		logger,
	)
	return uc, data
}

func writeTimeline(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timeline.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}
	return path
}

const twoTrials = `participant_id: 3
trials:
  - stimulus: [a.mp4]
    choices: [f, j]
    trial_ends_after_video: true
  - stimulus: [b.mp4]
    choices: NO_KEYS
    trial_ends_after_video: true
`

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func TestRunTimelineDataOnlyRecordsEveryTrial(t *testing.T) {
	t.Parallel()

	uc, data := newInteractor(t, 0.05)
	out, err := uc.RunTimeline(context.Background(), dto.RunTimelineInput{
		Path:  writeTimeline(t, twoTrials),
		Mode:  dto.ModeDataOnly,
		Trial: dto.AllTrials,
		RT:    floatPtr(420),
		Key:   strPtr("j"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.RunID != "run-1" || out.Mode != dto.ModeDataOnly || len(out.Trials) != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
	first := out.Trials[0]
	if len(first.RT) != 1 || first.RT[0] != 420 || first.Key[0] != "j" || first.StimInTrial[0] != "a.mp4" {
		t.Fatalf("unexpected first trial %+v", first)
	}
	if first.Data["participant_id"] != "3" || first.Data["rt"] != "[420]" {
		t.Fatalf("unexpected data %v", first.Data)
	}
	if len(out.Trials[1].RT) != 0 {
		t.Fatalf("NO_KEYS trial must carry no response, got %+v", out.Trials[1])
	}
	if len(data.records) != 2 || data.records[1].Stimulus != "b.mp4" || data.records[0].Mode != dto.ModeDataOnly {
		t.Fatalf("unexpected records %+v", data.records)
	}
}

func TestRunTimelineRunsSelectedTrial(t *testing.T) {
	t.Parallel()

	uc, data := newInteractor(t, 0.05)
	out, err := uc.RunTimeline(context.Background(), dto.RunTimelineInput{
		Path:  writeTimeline(t, twoTrials),
		Trial: 1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Mode != dto.ModeRun || len(out.Trials) != 1 || out.Trials[0].Index != 1 || len(out.Trials[0].RT) != 0 {
		t.Fatalf("unexpected output %+v", out)
	}
	if len(data.records) != 1 || data.records[0].Aborted {
		t.Fatalf("unexpected records %+v", data.records)
	}
}

func TestRunTimelineVisualPressesSimulatedKey(t *testing.T) {
	t.Parallel()

	uc, _ := newInteractor(t, 60)
	path := writeTimeline(t, `trials:
  - stimulus: [a.mp4]
    choices: [f, j]
`)
	out, err := uc.RunTimeline(context.Background(), dto.RunTimelineInput{
		Path:  path,
		Mode:  dto.ModeVisual,
		Trial: 0,
		RT:    floatPtr(10),
		Key:   strPtr("f"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.Trials[0]
	if len(got.Key) != 1 || got.Key[0] != "f" || got.RT[0] <= 0 {
		t.Fatalf("expected one simulated response, got %+v", got)
	}
}

func TestRunTimelineAbortIsRecorded(t *testing.T) {
	t.Parallel()

	uc, data := newInteractor(t, 60)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	out, err := uc.RunTimeline(ctx, dto.RunTimelineInput{
		Path:  writeTimeline(t, twoTrials),
		Trial: dto.AllTrials,
	})
	if !errors.Is(err, apperrors.ErrTrialAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
	if len(out.Trials) != 1 || !out.Trials[0].Aborted {
		t.Fatalf("expected one aborted trial, got %+v", out.Trials)
	}
	if len(data.records) != 1 || !data.records[0].Aborted {
		t.Fatalf("aborted trial must be recorded, got %+v", data.records)
	}
}

func TestRunTimelineRejectsBadInput(t *testing.T) {
	t.Parallel()

	uc, data := newInteractor(t, 0.05)
	path := writeTimeline(t, twoTrials)
	if _, err := uc.RunTimeline(context.Background(), dto.RunTimelineInput{Path: path, Mode: "fast"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := uc.RunTimeline(context.Background(), dto.RunTimelineInput{Path: path, Trial: 5}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	nan := dto.RunTimelineInput{Path: path, Mode: dto.ModeDataOnly, Trial: dto.AllTrials, RT: floatPtr(math.NaN())}
	if _, err := uc.RunTimeline(context.Background(), nan); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for NaN rt, got %v", err)
	}
	if len(data.records) != 0 {
		t.Fatalf("nothing should be recorded, got %+v", data.records)
	}
}

func TestRenderAndTrialJSON(t *testing.T) {
	t.Parallel()

	uc, _ := newInteractor(t, 0.05)
	path := writeTimeline(t, `trials:
  - stimulus: [clip.mov]
    width: 320
`)
	rendered, err := uc.Render(context.Background(), dto.RenderInput{Path: path})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(rendered.HTML, `id="video_0"`) || !strings.Contains(rendered.HTML, `id="line"`) {
		t.Fatalf("unexpected markup %s", rendered.HTML)
	}
	if len(rendered.Warnings) != 1 {
		t.Fatalf("expected a .mov warning, got %v", rendered.Warnings)
	}

	raw, err := uc.TrialJSON(context.Background(), dto.TrialJSONInput{Path: path})
	if err != nil {
		t.Fatalf("trial json: %v", err)
	}
	cfg, err := domain.DecodeTrialJSON([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 320 || len(cfg.Stimulus) != 1 {
		t.Fatalf("unexpected round trip %+v", cfg)
	}

	if _, err := uc.Render(context.Background(), dto.RenderInput{Path: path, Trial: 2}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParametersMirrorDomain(t *testing.T) {
	t.Parallel()

	uc, _ := newInteractor(t, 0.05)
	params, err := uc.Parameters(context.Background())
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	if len(params) != len(domain.Parameters()) || params[0].Name != "stimulus" || !params[0].Array {
		t.Fatalf("unexpected parameters %+v", params)
	}
}
