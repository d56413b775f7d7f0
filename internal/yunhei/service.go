package yunhei

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/rshade/ysyunhei/internal/batch"
	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/cooldown"
	"github.com/rshade/ysyunhei/internal/logging"
	"github.com/rshade/ysyunhei/internal/metrics"
	"github.com/rshade/ysyunhei/internal/onebot"
	"github.com/rshade/ysyunhei/internal/redact"
	"github.com/rshade/ysyunhei/internal/version"
)

// Defaults applied by NewService.
const (
	DefaultProbeTimeout   = 8 * time.Second
	DefaultSleepMuteHours = 8
)

// Options configures a Service.
type Options struct {
	APIKey string
	// Admins maps an administrator account to the registrant name sent on insert.
	Admins map[string]string

	// SiteURL is probed by About and linked from lookup cards.
	SiteURL      string
	ProbeTimeout time.Duration

	SleepStartHour int
	SleepEndHour   int
	SleepMuteHours int

	// ChunkSize bounds concurrent lookups during a scan.
	ChunkSize int

	Gate    *cooldown.Gate
	Metrics *metrics.Collector
	Now     func() time.Time
}

// Service runs the blacklist commands. It is safe for concurrent use.
type Service struct {
	api   Blacklist
	mod   Moderator
	opts  Options
	san   redact.Sanitizer
	probe *resty.Client
}

// NewService wires api and mod with opts, filling defaults. mod may be nil
// for lookup-only use, in which case nicknames fall back to account numbers.
func NewService(api Blacklist, mod Moderator, opts Options) *Service {
	if opts.SiteURL == "" {
		opts.SiteURL = blacklist.DefaultBaseURL
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = batch.DefaultBatchSize
	}
	if opts.SleepMuteHours <= 0 {
		opts.SleepMuteHours = DefaultSleepMuteHours
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Admins == nil {
		opts.Admins = map[string]string{}
	}

	return &Service{
		api:   api,
		mod:   mod,
		opts:  opts,
		san:   redact.New(opts.APIKey),
		probe: resty.New().
			SetTimeout(opts.ProbeTimeout).
			SetHeader("User-Agent", version.UserAgent()),
	}
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	l := logging.ComponentLogger(*logging.FromContext(ctx), "yunhei")
	return &l
}

// registrant returns the configured registrant name of userID.
func (s *Service) registrant(userID int64) (string, bool) {
	name, ok := s.opts.Admins[strconv.FormatInt(userID, 10)]
	return name, ok
}

// checkPreconditions verifies the group context, the bot role and the
// invoker's admin entry, in that order.
func (s *Service) checkPreconditions(ctx context.Context, sess Session) error {
	if !sess.InGroup() {
		return precondition(MsgNotInGroup)
	}

	bot, err := s.mod.GetGroupMemberInfo(ctx, sess.GroupID, sess.SelfID)
	if err != nil {
		return &PreconditionError{Reply: MsgBotRoleCheckFail + s.san.Error(err), Err: err}
	}
	if bot.Role == onebot.RoleMember {
		return precondition(MsgBotNotAdmin)
	}

	if _, ok := s.registrant(sess.UserID); !ok {
		return precondition(MsgNoPermission)
	}
	return nil
}

// nickname resolves a display name for account, falling back to the account itself.
func (s *Service) nickname(ctx context.Context, account string) string {
	id, err := strconv.ParseInt(account, 10, 64)
	if err != nil || s.mod == nil {
		return account
	}
	info, err := s.mod.GetStrangerInfo(ctx, id)
	if err != nil || info.Nickname == "" {
		return account
	}
	return info.Nickname
}

// orUnknown substitutes the generic text for an empty service message.
func (s *Service) orUnknown(msg string) string {
	if msg == "" {
		return redact.UnknownError
	}
	return s.san.Message(msg)
}

func newAudit(ctx context.Context, action string, sess Session, target int64) *logging.AuditEntry {
	return logging.NewAuditEntry(action, logging.TraceIDFromContext(ctx)).
		WithTarget(sess.GroupID, sess.UserID, target)
}

func (s *Service) audit(ctx context.Context, e *logging.AuditEntry) {
	logging.AuditLoggerFromContext(ctx).Log(ctx, *e)
}
