package yunhei

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rshade/ysyunhei/internal/cooldown"
	"github.com/rshade/ysyunhei/internal/onebot"
	"github.com/rshade/ysyunhei/internal/render"
)

// Replies of the sleepwell command.
const (
	MsgSleepCannot   = "对不起，做不到"
	MsgSleepIsAdmin  = "你已经是一个成熟的群管了，要学会以身作则按时休息！"
	MsgSleepBanFail  = "禁言失败，可能是机器人权限不足。"
	sleepConfirmWord = "confirm"
	maxHour          = 23
)

// SleepWindow is an hour range in Beijing time. End is exclusive; a window
// with Start == End covers the whole day and Start > End wraps midnight.
type SleepWindow struct {
	Start int
	End   int
}

// NewSleepWindow clamps both hours to 0..23.
func NewSleepWindow(start, end int) SleepWindow {
	return SleepWindow{Start: clampHour(start), End: clampHour(end)}
}

// Contains reports whether t falls inside the window, in Beijing time.
func (w SleepWindow) Contains(t time.Time) bool {
	h := t.In(render.Beijing).Hour()
	switch {
	case w.Start == w.End:
		return true
	case w.Start < w.End:
		return h >= w.Start && h < w.End
	default:
		return h >= w.Start || h < w.End
	}
}

func clampHour(h int) int {
	return max(0, min(maxHour, h))
}

// SleepWell mutes the invoker for the configured hours during the sleep
// window after an explicit confirm. Outside a group, outside the window, or
// with an unknown argument, the reply is empty and nothing is sent.
func (s *Service) SleepWell(ctx context.Context, sess Session, arg string) (string, error) {
	if !sess.InGroup() {
		return "", nil
	}

	window := NewSleepWindow(s.opts.SleepStartHour, s.opts.SleepEndHour)
	if !window.Contains(s.opts.Now()) {
		return "", nil
	}

	bot, err := s.mod.GetGroupMemberInfo(ctx, sess.GroupID, sess.SelfID)
	if err != nil {
		return MsgSleepCannot, err
	}
	if bot.Role == "" || bot.Role == onebot.RoleMember {
		return MsgSleepCannot, nil
	}

	hours := max(1, s.opts.SleepMuteHours)
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return fmt.Sprintf("本命令将会针对执行一个%d小时的禁言，正所谓精致睡眠。\n\n"+
			"当前已在精致睡眠时间段（%d:00-%d:00），如果确认，请输入以下命令。注意，此操作不可撤销！\n*yunhei.sleepwell confirm",
			hours, window.Start, window.End), nil
	}
	if !strings.EqualFold(arg, sleepConfirmWord) {
		return "", nil
	}

	if s.opts.Gate != nil && s.opts.Gate.HitSleepWell(ctx, sess.GroupID, sess.UserID) {
		return cooldown.SleepWellDebounced, nil
	}

	// A failed lookup is not fatal; the mute below reports its own failure.
	if self, err := s.mod.GetGroupMemberInfo(ctx, sess.GroupID, sess.UserID); err == nil && self.IsPrivileged() {
		return MsgSleepIsAdmin, nil
	}

	started := time.Now()
	d := time.Duration(hours) * time.Hour
	entry := newAudit(ctx, ActionBan, sess, sess.UserID).WithDetail("sleepwell " + d.String())
	if err := s.mod.SetGroupBan(ctx, sess.GroupID, sess.UserID, d); err != nil {
		s.audit(ctx, entry.WithError(s.san.Error(err)).WithDuration(started))
		return MsgSleepBanFail, err
	}
	s.audit(ctx, entry.WithDuration(started))
	return fmt.Sprintf("%d小时精致睡眠已到账，晚安~", hours), nil
}
