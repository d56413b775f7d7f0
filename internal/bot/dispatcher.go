// Package bot turns inbound chat messages into yunhei commands and sends the
// replies back through the OneBot adapter.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/ysyunhei/internal/cooldown"
	"github.com/rshade/ysyunhei/internal/logging"
	"github.com/rshade/ysyunhei/internal/metrics"
	"github.com/rshade/ysyunhei/internal/onebot"
	"github.com/rshade/ysyunhei/internal/render"
	"github.com/rshade/ysyunhei/internal/yunhei"
)

// Handler runs the commands. *yunhei.Service satisfies it.
type Handler interface {
	Check(ctx context.Context, sess yunhei.Session, account string) (string, error)
	Add(ctx context.Context, sess yunhei.Session, req yunhei.AddRequest) (string, error)
	About(ctx context.Context) string
	SleepWell(ctx context.Context, sess yunhei.Session, arg string) (string, error)
}

// Replier answers an event in its chat. *onebot.Client satisfies it.
type Replier interface {
	Reply(ctx context.Context, evt onebot.MessageEvent, message string) error
}

// Options configures a Dispatcher.
type Options struct {
	Prefix   string
	Handler  Handler
	Replier  Replier
	Gate     *cooldown.Gate
	Renderer render.Renderer
	Metrics  *metrics.Collector
	Logger   zerolog.Logger
	Audit    logging.AuditLogger
}

// Dispatcher routes messages to commands. Each message is handled on its own
// goroutine.
type Dispatcher struct {
	opts     Options
	base     zerolog.Logger
	commands map[string]*commandInfo
	ordered  []*commandInfo
	wg       sync.WaitGroup
}

// New builds a Dispatcher with the yunhei command table.
func New(opts Options) *Dispatcher {
	if opts.Renderer == nil {
		opts.Renderer = render.PlainText{}
	}
	if opts.Audit == nil {
		opts.Audit = logging.NewAuditLogger(logging.AuditLoggerConfig{})
	}

	d := &Dispatcher{
		opts:     opts,
		base:     opts.Logger,
		commands: map[string]*commandInfo{},
	}
	for _, c := range d.commandTable() {
		d.ordered = append(d.ordered, c)
		d.commands[c.Name] = c
		for _, a := range c.Aliases {
			d.commands[a] = c
		}
	}
	return d
}

// Run handles events until ctx is done or events is closed, then waits for
// in-flight commands.
func (d *Dispatcher) Run(ctx context.Context, events <-chan onebot.MessageEvent) error {
	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Handle(ctx, evt)
			}()
		}
	}
}

// Handle runs the command in evt, if any, and replies.
func (d *Dispatcher) Handle(ctx context.Context, evt onebot.MessageEvent) {
	cmd, ok := Parse(d.opts.Prefix, evt.RawMessage)
	if !ok {
		return
	}
	info, ok := d.commands[cmd.Name]
	if !ok {
		return
	}

	// The trace ID lives only in ctx; FromContext attaches it to every line.
	ctx = logging.ContextWithTraceID(ctx, logging.NewTraceID())
	ctx = logging.ContextWithAuditLogger(ctx, d.opts.Audit)
	ctx = d.base.With().
		Str("command", info.Name).
		Int64("group_id", evt.GroupID).
		Int64("user_id", evt.UserID).
		Logger().
		WithContext(ctx)
	log := logging.ComponentLogger(*logging.FromContext(ctx), "dispatcher")

	start := time.Now()
	if info.Cooldown && d.opts.Gate != nil {
		if tip := d.opts.Gate.CheckCommand(ctx, evt.UserID, info.Name); tip != "" {
			d.opts.Metrics.Command(info.Name, metrics.ResultRefused)
			log.Debug().Msg("command on cooldown")
			d.reply(ctx, evt, onebot.EscapeText(tip))
			return
		}
	}

	sess := d.session(evt)
	text, err := info.Run(ctx, sess, cmd)

	result := metrics.ResultOK
	switch {
	case err == nil:
	case yunhei.IsPrecondition(err), errors.Is(err, yunhei.ErrInvalidArgs):
		result = metrics.ResultRefused
	default:
		result = metrics.ResultError
	}
	d.opts.Metrics.Command(info.Name, result)

	ev := log.Info()
	if result == metrics.ResultError {
		ev = log.Warn().Err(err)
	}
	ev.Str("result", result).Dur("elapsed", time.Since(start)).Msg("command handled")

	if text == "" {
		return
	}
	if info.Title != "" {
		text = d.opts.Renderer.Render(ctx, info.Title, text)
	} else {
		text = onebot.EscapeText(text)
	}
	d.reply(ctx, evt, text)
}

func (d *Dispatcher) session(evt onebot.MessageEvent) yunhei.Session {
	sess := yunhei.Session{UserID: evt.UserID, SelfID: evt.SelfID}
	if evt.IsGroup() {
		sess.GroupID = evt.GroupID
	}
	sess.Send = func(ctx context.Context, text string) error {
		return d.opts.Replier.Reply(ctx, evt, onebot.EscapeText(text))
	}
	return sess
}

func (d *Dispatcher) reply(ctx context.Context, evt onebot.MessageEvent, message string) {
	if err := d.opts.Replier.Reply(ctx, evt, message); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("failed to send reply")
	}
}

// Usage lists every command, one per line.
func (d *Dispatcher) Usage() string {
	lines := make([]string, 0, len(d.ordered))
	for _, c := range d.ordered {
		lines = append(lines, c.usageLine())
	}
	return strings.Join(lines, "\n")
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
