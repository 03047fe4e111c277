package relayer

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/logger"

	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/tally"
)

// Action names a transaction the orchestrator submits.
type Action string

const (
	ActionAdvancePhase       Action = "advancePhase"
	ActionFinalizeWithWinner Action = "finalizeWithWinner"
	ActionPerformUpkeep      Action = "performUpkeep"
)

// Submission describes the outcome of a submitted transaction.
type Submission struct {
	Cycle   uint64
	Action  Action
	Outcome string
	// Err is set unless the submission succeeded.
	Err error
}

// SubmissionCaller is used to signal submissions.
func SubmissionCaller(handler interface{}, params ...interface{}) {
	handler.(func(submission *Submission))(params[0].(*Submission))
}

// Events are the events issued by the orchestrator.
type Events struct {
	// Fired after every submitted transaction.
	Submitted *events.Event
}

// the default options applied to the Orchestrator.
var defaultOptions = []Option{
	WithPollInterval(10 * time.Second),
	WithBackoff(500*time.Millisecond, 5*time.Second, 30*time.Second),
}

// Options define options for the Orchestrator.
type Options struct {
	logger            *logger.Logger
	metrics           *Metrics
	pollInterval      time.Duration
	contentGatewayURL string

	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
}

// applies the given Option.
func (so *Options) apply(opts ...Option) {
	for _, opt := range opts {
		opt(so)
	}
}

// Option is a function setting an Options option.
type Option func(opts *Options)

// WithLogger enables logging within the orchestrator.
func WithLogger(logger *logger.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithMetrics sets the metrics updated by the orchestrator.
func WithMetrics(metrics *Metrics) Option {
	return func(opts *Options) {
		opts.metrics = metrics
	}
}

// WithPollInterval sets the time between two ticks.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.pollInterval = interval
	}
}

// WithContentGatewayURL sets the base URL the asset payload of a winner points to.
// Without it the content reference itself is the payload.
func WithContentGatewayURL(url string) Option {
	return func(opts *Options) {
		opts.contentGatewayURL = strings.TrimRight(url, "/")
	}
}

// WithBackoff sets the bounds of the exponential backoff of failed requests.
func WithBackoff(initialInterval time.Duration, maxInterval time.Duration, maxElapsedTime time.Duration) Option {
	return func(opts *Options) {
		opts.initialInterval = initialInterval
		opts.maxInterval = maxInterval
		opts.maxElapsedTime = maxElapsedTime
	}
}

// Orchestrator drives the contest through its phases. Every tick recomputes
// its decisions from the ledger state, so a restarted orchestrator resumes
// wherever the ledger is.
type Orchestrator struct {
	client Client
	opts   *Options
	Events *Events
}

// New creates an Orchestrator submitting through client.
func New(client Client, opts ...Option) *Orchestrator {
	options := &Options{}
	options.apply(defaultOptions...)
	options.apply(opts...)

	if options.metrics == nil {
		options.metrics = NewMetrics()
	}

	return &Orchestrator{
		client: client,
		opts:   options,
		Events: &Events{
			Submitted: events.NewEvent(SubmissionCaller),
		},
	}
}

// IsFatal reports whether err requires operator attention.
func IsFatal(err error) bool {
	return ledger.KindOf(err) == ledger.KindAuthorization
}

func (o *Orchestrator) logInfof(template string, args ...interface{}) {
	if o.opts.logger != nil {
		o.opts.logger.Infof(template, args...)
	}
}

func (o *Orchestrator) logDebugf(template string, args ...interface{}) {
	if o.opts.logger != nil {
		o.opts.logger.Debugf(template, args...)
	}
}

func (o *Orchestrator) logWarnf(template string, args ...interface{}) {
	if o.opts.logger != nil {
		o.opts.logger.Warnf(template, args...)
	}
}

// Run ticks until ctx is done or a fatal error occurs.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.opts.pollInterval)
	defer ticker.Stop()

	for {
		if err := o.Tick(ctx); err != nil {
			if IsFatal(err) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			o.opts.metrics.TickErrors.Inc()
			o.logWarnf("tick failed: %s", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick reads the phase info and submits the due transition, if any.
func (o *Orchestrator) Tick(ctx context.Context) error {
	o.opts.metrics.Ticks.Inc()

	var info *contest.PhaseInfo
	if err := o.retry(ctx, func() error {
		var err error
		info, err = o.client.PhaseInfo(ctx)
		return err
	}); err != nil {
		return errors.WithMessage(err, "reading phase info failed")
	}

	o.opts.metrics.Cycle.Set(float64(info.Cycle))
	o.opts.metrics.Phase.Reset()
	o.opts.metrics.Phase.WithLabelValues(info.Phase.String()).Set(1)

	if !info.Due {
		o.logDebugf("cycle %d is %s until %s", info.Cycle, info.Phase, info.Deadline.Format(time.RFC3339))
		return nil
	}

	switch info.Phase {
	case contest.PhaseUploading:
		return o.advancePhase(ctx, info)
	case contest.PhaseVoting:
		return o.finalizeVoting(ctx, info)
	default:
		return o.settleBidding(ctx, info)
	}
}

func (o *Orchestrator) advancePhase(ctx context.Context, info *contest.PhaseInfo) error {
	return o.submit(ctx, info, ActionAdvancePhase, func() error {
		transition, err := o.client.AdvancePhase(ctx)
		if err != nil {
			return err
		}
		o.logTransition(transition)
		return nil
	})
}

// finalizeVoting recomputes the winner from the slot tallies and finalizes the
// voting phase with it. Without content the cycle restarts.
func (o *Orchestrator) finalizeVoting(ctx context.Context, info *contest.PhaseInfo) error {
	var slots []*contest.Slot
	if err := o.retry(ctx, func() error {
		var err error
		slots, err = o.client.Slots(ctx)
		return err
	}); err != nil {
		return errors.WithMessage(err, "reading slots failed")
	}

	winner, found := Winner(slots)
	if !found {
		return o.advancePhase(ctx, info)
	}

	return o.submit(ctx, info, ActionFinalizeWithWinner, func() error {
		transition, err := o.client.FinalizeWithWinner(ctx, winner.ContentRef, o.assetPayload(winner.ContentRef), winner.Index)
		if err != nil {
			return err
		}
		o.logTransition(transition)
		return nil
	})
}

// settleBidding settles the ended auction and starts the next cycle.
func (o *Orchestrator) settleBidding(ctx context.Context, info *contest.PhaseInfo) error {
	var needed bool
	var performData []byte
	if err := o.retry(ctx, func() error {
		var err error
		needed, performData, err = o.client.CheckUpkeep(ctx)
		return err
	}); err != nil {
		return errors.WithMessage(err, "checking upkeep failed")
	}

	if needed {
		if err := o.submit(ctx, info, ActionPerformUpkeep, func() error {
			settlement, err := o.client.PerformUpkeep(ctx, performData)
			if err != nil {
				return err
			}
			o.logInfof("auction %d settled: %d to %s", info.AuctionID, settlement.Proceeds, settlement.Recipient)
			return nil
		}); err != nil {
			return err
		}
	}

	return o.advancePhase(ctx, info)
}

func (o *Orchestrator) logTransition(transition *contest.Transition) {
	if transition.Reason != "" {
		o.logInfof("cycle %d: %s -> %s (%s)", transition.Cycle, transition.From, transition.To, transition.Reason)
		return
	}
	o.logInfof("cycle %d: %s -> %s", transition.Cycle, transition.From, transition.To)
}

func (o *Orchestrator) assetPayload(contentRef string) string {
	if o.opts.contentGatewayURL == "" {
		return contentRef
	}
	return o.opts.contentGatewayURL + "/" + contentRef
}

// submit runs fn with retries and classifies its outcome. Transitions that
// already happened and auctions that are not over yet are benign.
func (o *Orchestrator) submit(ctx context.Context, info *contest.PhaseInfo, action Action, fn func() error) error {
	err := o.retry(ctx, fn)

	submission := &Submission{Cycle: info.Cycle, Action: action, Err: err}
	switch {
	case err == nil:
		submission.Outcome = outcomeSucceeded

	case ledger.IsAlreadyDone(err),
		errors.Is(err, ledger.ErrAuctionStillOpen),
		errors.Is(err, ledger.ErrUpkeepNotNeeded):
		submission.Outcome = outcomeSkipped
		o.logDebugf("%s of cycle %d skipped: %s", action, info.Cycle, err)
		err = nil

	case ledger.CodeOf(err) != "":
		submission.Outcome = outcomeRejected
		err = errors.WithMessagef(err, "%s of cycle %d rejected", action, info.Cycle)

	default:
		submission.Outcome = outcomeFailed
		err = errors.WithMessagef(err, "%s of cycle %d failed", action, info.Cycle)
	}

	o.opts.metrics.Submissions.WithLabelValues(string(action), submission.Outcome).Inc()
	o.Events.Submitted.Trigger(submission)
	return err
}

// retry repeats fn with exponential backoff while it fails with transport errors.
// Ledger errors are returned at once.
func (o *Orchestrator) retry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.opts.initialInterval
	b.MaxInterval = o.opts.maxInterval
	b.MaxElapsedTime = o.opts.maxElapsedTime

	return backoff.RetryNotify(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		o.opts.metrics.Retries.Inc()
		o.logWarnf("request failed, retrying in %s: %s", next.Truncate(time.Millisecond), err)
	})
}

func isTransient(err error) bool {
	if ledger.CodeOf(err) != "" {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

// Winner selects the winning slot among the slots holding content with the
// same ordering the contest engine applies.
func Winner(slots []*contest.Slot) (*contest.Slot, bool) {
	filled := make(map[uint8]*contest.Slot)
	var candidates []*tally.SlotTally
	for _, slot := range slots {
		if !slot.HasContent || slot.SlotTally == nil {
			continue
		}
		filled[slot.Index] = slot
		candidates = append(candidates, slot.SlotTally)
	}

	winner, found := tally.SelectWinner(candidates)
	if !found {
		return nil, false
	}
	return filled[winner.Index], true
}
