package yunhei

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/render"
)

// Replies of the add command.
const (
	MsgAddUsage       = "错误：缺少必要的参数。请使用 `help yunhei.add` 查看正确的指令格式。"
	MsgAddBadAccount  = "错误：QQ号格式不正确，应为纯数字。"
	MsgAddBadLevel    = "错误：等级参数错误，应为1~3。"
	MsgAddBadBanTime  = "错误：禁言时长格式不正确，例如 1天2小时30分。"
	MsgAddUnexpected  = "错误：执行添加操作时遇到意外。原因："
	MsgAddNoFinalInfo = "成功添加用户到云黑，但未获取到有效的最终信息。"
)

// ErrInvalidArgs marks an add call rejected before any remote call.
var ErrInvalidArgs = errors.New("invalid command arguments")

// AddRequest carries the add command arguments as typed by the admin.
type AddRequest struct {
	Account     string
	Level       int
	Description string
	// BanTime is an optional Chinese duration such as "1天2小时30分".
	BanTime string
}

// Add registers an account, applies the level's measure in the current group
// and returns a confirmation built from a follow-up read.
//
// Level 1 entries expire after a year; levels 2 and 3 are permanent and
// level 3 also kicks the account and rejects re-join requests.
func (s *Service) Add(ctx context.Context, sess Session, req AddRequest) (string, error) {
	req.Account = strings.TrimSpace(req.Account)
	req.Description = strings.TrimSpace(req.Description)
	req.BanTime = strings.TrimSpace(req.BanTime)

	if req.Account == "" || req.Level == 0 || req.Description == "" {
		return MsgAddUsage, ErrInvalidArgs
	}
	if err := s.checkPreconditions(ctx, sess); err != nil {
		return err.Error(), err
	}

	level, ok := blacklist.ParseLevel(req.Level)
	if !ok {
		return MsgAddBadLevel, ErrInvalidArgs
	}
	target, err := strconv.ParseInt(req.Account, 10, 64)
	if err != nil {
		return MsgAddBadAccount, ErrInvalidArgs
	}
	var ban time.Duration
	if req.BanTime != "" {
		if ban = ParseMuteDuration(req.BanTime); ban <= 0 {
			return MsgAddBadBanTime, ErrInvalidArgs
		}
	}

	pre, err := s.api.Query(ctx, req.Account)
	if err != nil {
		return MsgAddUnexpected + s.san.Error(err), err
	}
	if !pre.Success() && pre.Empty() {
		return "错误：无法与云黑系统通信。API返回：" + s.orUnknown(pre.Message), fmt.Errorf("%w: %s", ErrRemote, pre.Message)
	}

	registration, _ := s.registrant(sess.UserID)
	started := time.Now()
	entry := newAudit(ctx, ActionAdd, sess, target).
		WithDetail(fmt.Sprintf("level=%d desc=%s", req.Level, req.Description))

	created, err := s.api.Add(ctx, blacklist.AddRequest{
		Account:      req.Account,
		Level:        level,
		Registration: registration,
		Description:  dayRecord(req.Description, s.opts.Now().In(render.Beijing)),
	})
	if err != nil {
		msg := s.san.Error(err)
		s.audit(ctx, entry.WithError(msg).WithDuration(started))
		return MsgAddUnexpected + msg, err
	}
	if !created.Success() {
		s.audit(ctx, entry.WithError(created.Message).WithDuration(started))
		return "错误：添加用户失败。API返回：" + s.orUnknown(created.Message), fmt.Errorf("%w: %s", ErrRemote, created.Message)
	}
	s.audit(ctx, entry.WithDuration(started))
	s.logger(ctx).Info().
		Int64("group_id", sess.GroupID).
		Int64("actor_id", sess.UserID).
		Str("account", req.Account).
		Stringer("level", level).
		Msg("blacklist entry added")

	measure, reply, err := s.applyMeasure(ctx, sess, target, level, req.BanTime, ban)
	if err != nil {
		return reply, err
	}

	final, err := s.api.Query(ctx, req.Account)
	if err != nil {
		return MsgAddUnexpected + s.san.Error(err), err
	}
	if !final.Success() {
		return "成功添加用户到云黑，但获取最终信息时出错。API返回：" + s.orUnknown(final.Message), fmt.Errorf("%w: %s", ErrRemote, final.Message)
	}
	rec, ok := final.Record()
	if !ok {
		return MsgAddNoFinalInfo, nil
	}

	shown := string(rec.Account)
	if shown == "" {
		shown = req.Account
	}
	nickname := s.nickname(ctx, shown)

	return fmt.Sprintf("已将%s（%s）%s。\n违规原因：%s\n严重程度：%s\n措施：%s\n登记人：%s\n上黑时间：%s",
		nickname, req.Account, measure, rec.Description, rec.LevelLabel, measure, rec.Registration, rec.AddTime), nil
}

// applyMeasure runs the level's kick and the optional mute, returning the
// measure text. On failure it returns the reply to send instead.
func (s *Service) applyMeasure(
	ctx context.Context,
	sess Session,
	target int64,
	level blacklist.Level,
	banText string,
	ban time.Duration,
) (string, string, error) {
	measure := "记录违规信息"
	switch level {
	case blacklist.LevelLight:
		measure += "，时长一年"
	case blacklist.LevelModerate:
		measure = "永久" + measure
	case blacklist.LevelSevere:
		started := time.Now()
		entry := newAudit(ctx, ActionKick, sess, target).WithDetail("add level 3")
		if err := s.mod.SetGroupKick(ctx, sess.GroupID, target, true); err != nil {
			msg := s.san.Error(err)
			s.audit(ctx, entry.WithError(msg).WithDuration(started))
			return "", "踢出用户失败，可能是权限不足或对方是群主/管理员。错误信息：" + msg, err
		}
		s.audit(ctx, entry.WithDuration(started))
		measure = "踢出群并拒绝再次申请，永久" + measure
	}

	if ban > 0 {
		started := time.Now()
		entry := newAudit(ctx, ActionBan, sess, target).WithDetail(ban.String())
		if err := s.mod.SetGroupBan(ctx, sess.GroupID, target, ban); err != nil {
			msg := s.san.Error(err)
			s.audit(ctx, entry.WithError(msg).WithDuration(started))
			return "", "禁言用户失败，可能是权限不足或对方是群主/管理员。错误信息：" + msg, err
		}
		s.audit(ctx, entry.WithDuration(started))
		measure += "并禁言" + banText
	}
	return measure, "", nil
}
