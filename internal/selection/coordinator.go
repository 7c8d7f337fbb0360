// Package selection runs the reaction prompt that turns a scan into a
// download choice.
//
// One Coordinator serves exactly one prompt:
//
//	Idle -> Prompted -> {Resolved, TimedOut, Superseded} -> Retired
//
// The prompt message is retired exactly once whatever the outcome: edited
// into a confirmation when resolved, deleted otherwise.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/media"
)

// DefaultTimeout is how long a prompt waits for the requester.
const DefaultTimeout = 15 * time.Second

// retireTimeout bounds the edit or delete that retires a prompt.
const retireTimeout = 10 * time.Second

var (
	ErrNoOptions      = errors.New("no options to prompt for")
	ErrAlreadyStarted = errors.New("prompt already published")
)

// State is a coordinator lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePrompted
	StateResolved
	StateTimedOut
	StateSuperseded
	StateRetired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrompted:
		return "prompted"
	case StateResolved:
		return "resolved"
	case StateTimedOut:
		return "timed_out"
	case StateSuperseded:
		return "superseded"
	case StateRetired:
		return "retired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind is the terminal outcome of a prompt.
type Kind int

const (
	KindResolved Kind = iota + 1
	KindTimedOut
	KindSuperseded
)

func (k Kind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindTimedOut:
		return "timed_out"
	case KindSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Outcome is the result of waiting on a prompt. Option and Status are set
// only for KindResolved; Status is the retired prompt, now a status line.
type Outcome struct {
	Kind   Kind
	Option media.Option
	Status discord.MessageHandle
}

// Correlation identifies which reactions may resolve a prompt.
type Correlation struct {
	PromptMessageID string
	RequesterID     string
	Symbols         []string
}

// Matches reports whether ev is a qualifying reaction.
func (c Correlation) Matches(ev discord.ReactionEvent) bool {
	return ev.MessageID == c.PromptMessageID &&
		ev.UserID == c.RequesterID &&
		slices.Contains(c.Symbols, ev.Emoji)
}

// Subscriber delivers reaction events for one message.
type Subscriber interface {
	Subscribe(messageID string) (<-chan discord.ReactionEvent, func())
}

// Request describes one prompt.
type Request struct {
	ChannelID   string
	RequesterID string
	Options     []media.Option
	Text        string
	// Confirm renders the content the prompt is edited to once resolved.
	Confirm func(media.Option) string
}

// Coordinator drives a single prompt. It is not reusable.
type Coordinator struct {
	api       discord.ChatAPI
	reactions Subscriber
	timeout   time.Duration
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	req         Request
	prompt      discord.MessageHandle
	events      <-chan discord.ReactionEvent
	unsubscribe func()

	retired atomic.Bool
}

// NewCoordinator creates a Coordinator. A non-positive timeout uses DefaultTimeout.
func NewCoordinator(api discord.ChatAPI, reactions Subscriber, timeout time.Duration, logger *slog.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		api:       api,
		reactions: reactions,
		timeout:   timeout,
		logger:    logger.With("component", "selection"),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run publishes the prompt and waits for its outcome.
func (c *Coordinator) Run(ctx context.Context, req Request) (Outcome, error) {
	corr, err := c.Prompt(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return c.Await(ctx, corr), nil
}

// Prompt publishes the option list and adds one selector reaction per
// option, in order. Reactions are subscribed to before the selectors are
// added so no qualifying event is missed.
func (c *Coordinator) Prompt(ctx context.Context, req Request) (Correlation, error) {
	if len(req.Options) == 0 {
		return Correlation{}, ErrNoOptions
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Correlation{}, ErrAlreadyStarted
	}
	c.mu.Unlock()

	h, err := c.api.SendMessage(ctx, req.ChannelID, req.Text)
	if err != nil {
		return Correlation{}, fmt.Errorf("failed to publish prompt: %w", err)
	}
	events, unsubscribe := c.reactions.Subscribe(h.MessageID)

	c.mu.Lock()
	c.state = StatePrompted
	c.req = req
	c.prompt = h
	c.events = events
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	for _, opt := range req.Options {
		if err := c.api.AddReaction(ctx, h, opt.Symbol); err != nil {
			c.finish(ctx, StateSuperseded, media.Option{})
			return Correlation{}, fmt.Errorf("failed to add selector: %w", err)
		}
	}

	c.logger.Debug("prompt published",
		"channel_id", h.ChannelID,
		"message_id", h.MessageID,
		"requester_id", req.RequesterID,
		"options", len(req.Options),
	)

	return Correlation{
		PromptMessageID: h.MessageID,
		RequesterID:     req.RequesterID,
		Symbols:         media.Symbols(req.Options),
	}, nil
}

// Await blocks until the first qualifying reaction, the timeout, or ctx
// cancellation. Only the first qualifying reaction is honored; the prompt
// stops listening as soon as it resolves.
func (c *Coordinator) Await(ctx context.Context, corr Correlation) Outcome {
	c.mu.Lock()
	if c.state != StatePrompted {
		state := c.state
		c.mu.Unlock()
		c.logger.Warn("await on a prompt that is not waiting", "state", state.String())
		return Outcome{Kind: KindSuperseded}
	}
	events := c.events
	options := c.req.Options
	c.mu.Unlock()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-events:
			if !corr.Matches(ev) {
				c.logger.Debug("reaction ignored",
					"message_id", ev.MessageID,
					"user_id", ev.UserID,
					"emoji", ev.Emoji,
				)
				continue
			}
			opt, ok := media.OptionBySymbol(options, ev.Emoji)
			if !ok {
				continue
			}
			return c.finish(ctx, StateResolved, opt)

		case <-timer.C:
			return c.finish(ctx, StateTimedOut, media.Option{})

		case <-ctx.Done():
			return c.finish(ctx, StateSuperseded, media.Option{})
		}
	}
}

// finish moves the prompt to its terminal state and retires it. The atomic
// flag makes retirement happen once even if finish races with itself.
func (c *Coordinator) finish(ctx context.Context, terminal State, opt media.Option) Outcome {
	if !c.retired.CompareAndSwap(false, true) {
		return Outcome{Kind: KindSuperseded}
	}

	c.mu.Lock()
	c.state = terminal
	h := c.prompt
	req := c.req
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	// The request context may already be cancelled; retirement must still run.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retireTimeout)
	defer cancel()

	outcome := Outcome{}
	switch terminal {
	case StateResolved:
		outcome = Outcome{Kind: KindResolved, Option: opt, Status: h}
		content := string(opt.Label)
		if req.Confirm != nil {
			content = req.Confirm(opt)
		}
		if err := c.api.EditMessage(rctx, h, content, 0); err != nil {
			c.logger.Warn("failed to retire prompt", "message_id", h.MessageID, "error", err)
		}
	case StateTimedOut:
		outcome = Outcome{Kind: KindTimedOut}
		c.deletePrompt(rctx, h)
	default:
		outcome = Outcome{Kind: KindSuperseded}
		c.deletePrompt(rctx, h)
	}

	c.mu.Lock()
	c.state = StateRetired
	c.mu.Unlock()

	c.logger.Debug("prompt retired", "message_id", h.MessageID, "outcome", outcome.Kind.String())
	return outcome
}

func (c *Coordinator) deletePrompt(ctx context.Context, h discord.MessageHandle) {
	if err := c.api.DeleteMessage(ctx, h); err != nil {
		c.logger.Warn("failed to retire prompt", "message_id", h.MessageID, "error", err)
	}
}
