package harvest

import (
	"context"
	"errors"
	"fmt"
	"rewardfeed/internal/components/assert"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/internal/fetcher"
	"rewardfeed/internal/rewards"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("rewardfeed/internal/harvest")

const (
	report_runner_transition = "runner.transition"
	report_runner_run        = "runner.run"
	report_runner_notify     = "runner.notify"
)

type State string

const (
	StateFetching       State = "FETCHING"
	StateExtracting     State = "EXTRACTING"
	StateResolvingDates State = "RESOLVING_DATES"
	StateBuilding       State = "BUILDING"
	StatePublishing     State = "PUBLISHING"
	StateDone           State = "DONE"
	StateNoLinks        State = "NO_LINKS"
	StateFailed         State = "FAILED"
)

// Terminal reports whether a run stops in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateNoLinks || s == StateFailed
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetcher.Page, error)
}

type Publisher interface {
	Publish(ctx context.Context, records []rewards.Record) error
}

// Notifier is told about runs that end in FAILED.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Result describes how a run went.
type Result struct {
	State State
	// Transitions holds every state the run entered, in order.
	Transitions []State
	PageTitle   string
	Records     []rewards.Record
}

type Runner struct {
	url       string
	fetcher   Fetcher
	extractor rewards.Extractor
	publisher Publisher
	notifier  Notifier
	tel       telemetry.API
}

func NewRunner(
	url string,
	fetcher Fetcher,
	extractor rewards.Extractor,
	publisher Publisher,
	notifier Notifier,
	tel telemetry.API,
) Runner {
	assert.NotEmptyStr(url)
	assert.NotNil(fetcher)
	assert.NotNil(publisher)
	assert.NotNil(notifier)
	assert.NotNil(tel)

	return Runner{
		url:       url,
		fetcher:   fetcher,
		extractor: extractor,
		publisher: publisher,
		notifier:  notifier,
		tel:       telemetry.NewScopedAPI("harvest", tel),
	}
}

type run struct {
	tel    telemetry.API
	result Result
}

func (r *run) enter(state State) {
	from := State("")
	if len(r.result.Transitions) > 0 {
		from = r.result.Transitions[len(r.result.Transitions)-1]
	}
	r.result.Transitions = append(r.result.Transitions, state)
	r.result.State = state
	r.tel.ReportDebug(report_runner_transition, string(from), string(state))
}

// Run executes one harvest: fetch the source page, extract and date every
// reward link and publish them as the new snapshot. It returns
// ErrNoLinksFound (with state NO_LINKS) when the page had no links, in which
// case nothing is published.
func (r Runner) Run(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("url", r.url),
	))
	defer span.End()

	current := &run{tel: r.tel}
	result, err := r.run(ctx, current)
	span.SetAttributes(attribute.String("state", string(result.State)))

	if err != nil && !errors.Is(err, ErrNoLinksFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.tel.ReportBroken(report_runner_run, err, strings.Join(stateNames(result.Transitions), " -> "))
		r.notify(ctx, result, err)
	}
	return result, err
}

func (r Runner) run(ctx context.Context, current *run) (Result, error) {
	fail := func(err error) (Result, error) {
		current.enter(StateFailed)
		return current.result, err
	}

	current.enter(StateFetching)
	page, err := r.fetch(ctx)
	if err != nil {
		return fail(&FetchError{Err: err})
	}
	current.result.PageTitle = page.Title

	current.enter(StateExtracting)
	candidates := r.extractor.Locate(page.Doc.Selection)
	if len(candidates) == 0 {
		current.enter(StateNoLinks)
		return current.result, ErrNoLinksFound
	}

	current.enter(StateResolvingDates)
	dated := r.extractor.Resolve(page.Doc.Selection, candidates)

	current.enter(StateBuilding)
	records := r.extractor.Build(dated)
	current.result.Records = records

	current.enter(StatePublishing)
	err = r.publish(ctx, records)
	if err != nil {
		return fail(&PublishError{Err: err})
	}

	current.enter(StateDone)
	return current.result, nil
}

func (r Runner) fetch(ctx context.Context) (fetcher.Page, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	page, err := r.fetcher.Fetch(ctx, r.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fetcher.Page{}, err
	}
	span.SetAttributes(
		attribute.String("title", page.Title),
		attribute.Int("size", page.Size),
	)
	return page, nil
}

func (r Runner) publish(ctx context.Context, records []rewards.Record) error {
	ctx, span := tracer.Start(ctx, "Publish", trace.WithAttributes(
		attribute.Int("records", len(records)),
	))
	defer span.End()

	err := r.publisher.Publish(ctx, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r Runner) notify(ctx context.Context, result Result, runErr error) {
	err := NotifyFailure(ctx, r.notifier, r.url, result.Transitions, runErr)
	if err != nil {
		r.tel.ReportWarning(report_runner_notify, err)
	}
}

// NotifyFailure sends the failure alert for a run against url that ended with
// runErr after passing through states.
func NotifyFailure(ctx context.Context, notifier Notifier, url string, states []State, runErr error) error {
	subject := fmt.Sprintf("rewardfeed run failed (exit %d)", ExitCode(runErr))
	body := fmt.Sprintf(
		"source: %s\nstates: %s\nerror: %v\n",
		url,
		strings.Join(stateNames(states), " -> "),
		runErr,
	)
	return notifier.Notify(context.WithoutCancel(ctx), subject, body)
}

func stateNames(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
