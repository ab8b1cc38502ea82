// Package service orchestrates one purchase order email from trigger to ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/autopo-labels/internal/archive"
	"github.com/andresuchdata/autopo-labels/internal/cache"
	"github.com/andresuchdata/autopo-labels/internal/domain"
	"github.com/andresuchdata/autopo-labels/internal/extract"
	"github.com/andresuchdata/autopo-labels/internal/ledger"
	"github.com/andresuchdata/autopo-labels/internal/mail"
	"github.com/andresuchdata/autopo-labels/internal/recipient"
)

// LabelRenderer renders every variant of an order, ordered by variant index.
type LabelRenderer interface {
	RenderAll(ctx context.Context, variants []domain.Variant) ([]domain.LabelImage, error)
}

// Mailer sends one message with an optional archive attached.
type Mailer interface {
	Send(ctx context.Context, rs domain.RecipientSet, subject, body string, attachment *domain.Archive) error
}

// ProcessorConfig holds the settings that shape a single invocation.
type ProcessorConfig struct {
	WMSSender        string
	SenderCaseFold   bool
	Mailboxes        recipient.Mailboxes
	VerificationMode bool
	LedgerFailOpen   bool
}

// OrderProcessor drives an email through the processing states. It holds no
// per-invocation state and may be shared between goroutines; duplicate
// deliveries of the same PO must be serialised by the caller or the
// in-flight guard.
type OrderProcessor struct {
	cfg      ProcessorConfig
	renderer LabelRenderer
	ledger   ledger.Ledger
	mailer   Mailer
	guard    cache.InflightGuard
	log      zerolog.Logger
	handlers map[domain.State]stateHandler
}

type stateHandler func(ctx context.Context, r *invocation) (domain.State, error)

// invocation carries what earlier states produced.
type invocation struct {
	email      domain.InboundEmail
	order      domain.PurchaseOrder
	processed  bool
	claimed    bool
	labels     []domain.LabelImage
	archive    domain.Archive
	recipients domain.RecipientSet
	reason     string
	// failure is returned to the caller even though the run ended in a
	// terminal state.
	failure error
	log     zerolog.Logger
}

func NewOrderProcessor(cfg ProcessorConfig, renderer LabelRenderer, l ledger.Ledger, mailer Mailer, guard cache.InflightGuard, log zerolog.Logger) *OrderProcessor {
	if guard == nil {
		guard = cache.NewNoopInflightGuard()
	}
	p := &OrderProcessor{
		cfg:      cfg,
		renderer: renderer,
		ledger:   l,
		mailer:   mailer,
		guard:    guard,
		log:      log,
	}
	p.handlers = map[domain.State]stateHandler{
		domain.StateReceived:           p.verifySender,
		domain.StateSenderVerified:     p.extract,
		domain.StateExtracted:          p.checkLedger,
		domain.StateLedgerChecked:      p.render,
		domain.StateRendered:           p.bundle,
		domain.StateBundled:            p.resolveRecipients,
		domain.StateRecipientsResolved: p.dispatch,
		domain.StateDispatched:         p.record,
	}
	return p
}

// Process runs one invocation. A nil error means the run reached Skipped,
// Recorded or Alerted; Alerted after a failed dispatch also returns the
// dispatch error so the trigger redelivers.
func (p *OrderProcessor) Process(ctx context.Context, email domain.InboundEmail) (domain.Outcome, error) {
	r := &invocation{email: email, log: p.log}
	state := domain.StateReceived
	outcome := domain.Outcome{Trace: []domain.State{state}}

	defer p.release(ctx, r)

	for !state.Terminal() {
		handler, ok := p.handlers[state]
		if !ok {
			return p.finish(outcome, state, r), fmt.Errorf("no handler for state %s", state)
		}

		next, err := handler(ctx, r)
		if next != state {
			outcome.Trace = append(outcome.Trace, next)
		}
		if err != nil {
			r.reason = err.Error()
			return p.finish(outcome, next, r), err
		}

		r.log.Debug().Str("from", state.String()).Str("to", next.String()).Msg("state transition")
		state = next
	}

	return p.finish(outcome, state, r), r.failure
}

func (p *OrderProcessor) finish(outcome domain.Outcome, state domain.State, r *invocation) domain.Outcome {
	outcome.State = state
	outcome.PurchaseOrderID = r.order.ID
	outcome.Recipients = r.recipients
	outcome.Reason = r.reason
	if r.archive.Name != "" {
		outcome.ArchiveName = r.archive.Name
	}
	return outcome
}

func (p *OrderProcessor) verifySender(_ context.Context, r *invocation) (domain.State, error) {
	if !p.senderAllowed(r.email.Sender) {
		p.log.Warn().Str("sender", r.email.Sender).Msg("rejected email from unauthorised sender")
		return domain.StateReceived, fmt.Errorf("%w: %q", domain.ErrSenderRejected, r.email.Sender)
	}
	return domain.StateSenderVerified, nil
}

func (p *OrderProcessor) senderAllowed(sender string) bool {
	want := strings.TrimSpace(p.cfg.WMSSender)
	got := strings.TrimSpace(sender)
	if want == "" || got == "" {
		return false
	}
	if p.cfg.SenderCaseFold {
		return strings.EqualFold(want, got)
	}
	return want == got
}

func (p *OrderProcessor) extract(ctx context.Context, r *invocation) (domain.State, error) {
	order, err := extract.Parse(r.email.Body)
	if err != nil {
		return p.alert(ctx, r, err)
	}
	r.order = order
	r.log = p.log.With().Str("po", order.ID).Logger()
	r.log.Info().Int("variants", len(order.Variants)).Msg("extracted purchase order")
	return domain.StateExtracted, nil
}

func (p *OrderProcessor) checkLedger(ctx context.Context, r *invocation) (domain.State, error) {
	present, err := p.ledger.Contains(ctx, r.order.ID)
	if err != nil {
		if !p.cfg.LedgerFailOpen {
			r.log.Error().Err(err).Msg("ledger read failed")
			return domain.StateExtracted, err
		}
		r.log.Warn().Err(err).Msg("ledger read failed, continuing as not processed")
		present = false
	}
	r.processed = present
	return domain.StateLedgerChecked, nil
}

func (p *OrderProcessor) render(ctx context.Context, r *invocation) (domain.State, error) {
	if r.processed {
		r.log.Info().Msg("purchase order already processed, skipping")
		return domain.StateSkipped, nil
	}

	claimed, err := p.guard.Claim(ctx, r.order.ID)
	switch {
	case err != nil:
		r.log.Warn().Err(err).Msg("in-flight claim failed, continuing without it")
	case !claimed:
		r.reason = "already being processed"
		r.log.Info().Msg("purchase order is being processed by another invocation, skipping")
		return domain.StateSkipped, nil
	default:
		r.claimed = true
		// another invocation may have recorded the PO between our ledger
		// read and the claim
		present, err := p.ledger.Contains(ctx, r.order.ID)
		if err != nil && !p.cfg.LedgerFailOpen {
			r.log.Error().Err(err).Msg("ledger re-read after claim failed")
			return domain.StateLedgerChecked, err
		}
		if present {
			r.log.Info().Msg("purchase order recorded by another invocation, skipping")
			return domain.StateSkipped, nil
		}
	}

	labels, err := p.renderer.RenderAll(ctx, r.order.Variants)
	if err != nil {
		if errors.Is(err, domain.ErrRender) {
			return p.alert(ctx, r, err)
		}
		return domain.StateLedgerChecked, err
	}
	r.labels = labels
	return domain.StateRendered, nil
}

func (p *OrderProcessor) bundle(_ context.Context, r *invocation) (domain.State, error) {
	bundle, err := archive.Build(r.order.ID, r.labels)
	if err != nil {
		return domain.StateRendered, err
	}
	r.archive = bundle
	r.labels = nil
	r.log.Info().Str("archive", bundle.Name).Int("members", len(bundle.Members)).Msg("archive built")
	return domain.StateBundled, nil
}

func (p *OrderProcessor) resolveRecipients(ctx context.Context, r *invocation) (domain.State, error) {
	rs, err := recipient.Resolve(p.cfg.Mailboxes, p.cfg.VerificationMode)
	if err != nil {
		return p.alert(ctx, r, err)
	}
	r.recipients = rs
	return domain.StateRecipientsResolved, nil
}

func (p *OrderProcessor) dispatch(ctx context.Context, r *invocation) (domain.State, error) {
	id := r.order.ID
	err := p.mailer.Send(ctx, r.recipients, mail.BuildSubject(id), mail.BuildBody(id), &r.archive)
	if err != nil {
		if !errors.Is(err, domain.ErrDispatch) {
			err = fmt.Errorf("%w: %v", domain.ErrDispatch, err)
		}
		state, alertErr := p.alert(ctx, r, err)
		if alertErr != nil {
			return state, errors.Join(err, alertErr)
		}
		r.failure = err
		return state, nil
	}
	r.log.Info().Strs("to", r.recipients.To).Strs("cc", r.recipients.Cc).Msg("barcodes dispatched")
	return domain.StateDispatched, nil
}

func (p *OrderProcessor) record(ctx context.Context, r *invocation) (domain.State, error) {
	if err := p.ledger.Append(ctx, r.order.ID); err != nil {
		r.log.Error().Err(err).Msg("email sent but ledger append failed; record this PO manually")
		return domain.StateDispatched, err
	}
	r.log.Info().Msg("purchase order recorded")
	return domain.StateRecorded, nil
}

// alert notifies the administrator about cause and ends the run as Alerted.
// A failed alert is returned as the invocation error.
func (p *OrderProcessor) alert(ctx context.Context, r *invocation, cause error) (domain.State, error) {
	r.reason = cause.Error()
	r.log.Error().Err(cause).Msg("alerting administrator")

	admin := strings.TrimSpace(p.cfg.Mailboxes.Admin)
	if admin == "" {
		return domain.StateAlerted, fmt.Errorf("%w: administrator address not configured (%v)", domain.ErrRecipientResolution, cause)
	}

	rs := domain.RecipientSet{To: []string{admin}}
	if err := p.mailer.Send(ctx, rs, domain.AlertSubject(cause, r.order.ID), alertBody(cause, r), nil); err != nil {
		r.log.Error().Err(err).Msg("administrator alert failed")
		return domain.StateAlerted, err
	}
	return domain.StateAlerted, nil
}

func alertBody(cause error, r *invocation) string {
	var b strings.Builder
	b.WriteString("An error occurred while processing a purchase order email.\n\n")
	if r.order.ID != "" {
		fmt.Fprintf(&b, "PO: %s\n", r.order.ID)
	}
	fmt.Fprintf(&b, "Sender: %s\n", r.email.Sender)
	fmt.Fprintf(&b, "Error: %v\n", cause)
	return b.String()
}

func (p *OrderProcessor) release(ctx context.Context, r *invocation) {
	if !r.claimed {
		return
	}
	if err := p.guard.Release(context.WithoutCancel(ctx), r.order.ID); err != nil {
		r.log.Warn().Err(err).Msg("in-flight release failed")
	}
}
