package yunhei

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rshade/ysyunhei/internal/batch"
	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/metrics"
	"github.com/rshade/ysyunhei/internal/onebot"
)

// Audit actions.
const (
	ActionKick = "kick"
	ActionBan  = "ban"
	ActionAdd  = "add"
)

// ScanState accumulates the outcome of one group scan. Lookups run
// concurrently, so every field is guarded by mu. Progress lines are sent
// while holding mu so they reach the chat in threshold order.
type ScanState struct {
	mu sync.Mutex

	Total     int
	Processed int
	Detected  int
	Light     int
	Moderate  int
	Severe    int
	// SevereLines holds one block per severe member plus its kick outcome.
	SevereLines []string
	// FirstError is the first lookup failure, already sanitized.
	FirstError string

	thresholds *batch.Thresholds
}

func newScanState(total int) *ScanState {
	return &ScanState{Total: total, thresholds: batch.NewThresholds()}
}

func (st *ScanState) keepError(msg string) {
	if st.FirstError == "" {
		st.FirstError = msg
	}
}

// Report renders the final summary without the closing line.
func (st *ScanState) Report() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var b strings.Builder
	if st.Detected == 0 {
		b.WriteString("未检查出任何位于黑名单内的成员。")
	} else {
		fmt.Fprintf(&b, "检测到%d名违规用户。其中等级轻微者%d人，等级中等者%d人，等级严重者%d人。",
			st.Detected, st.Light, st.Moderate, st.Severe)
		if len(st.SevereLines) > 0 {
			b.WriteString("\n严重用户列表及处理结果：\n")
			b.WriteString(strings.Join(st.SevereLines, "\n"))
			b.WriteString("\n其中普通成员已尝试踢出；若为群主/管理员，请手动处理。")
		}
	}
	if st.FirstError != "" {
		b.WriteString("\n\n在检查过程中遇到一个或多个错误，可能导致部分用户未被正确查询。遇到的第一个错误是：")
		b.WriteString(st.FirstError)
	}
	return b.String()
}

// ScanGroup checks every member of the session's group against the blacklist
// and kicks severe entries that are plain members. Progress and the report are
// delivered through sess.Send; the returned reply is always empty on success.
func (s *Service) ScanGroup(ctx context.Context, sess Session) (string, error) {
	state, reply, err := s.scanGroup(ctx, sess)
	if state == nil {
		return reply, err
	}
	sess.send(ctx, state.Report()+"\n检查完毕，感谢您的使用。")
	return "", nil
}

// scanGroup runs the scan and returns its final state. A nil state means the
// scan did not complete and reply carries the text for the user.
func (s *Service) scanGroup(ctx context.Context, sess Session) (*ScanState, string, error) {
	if err := s.checkPreconditions(ctx, sess); err != nil {
		return nil, err.Error(), err
	}

	log := s.logger(ctx).With().Int64("group_id", sess.GroupID).Logger()

	members, err := s.mod.GetGroupMemberList(ctx, sess.GroupID)
	if err != nil {
		return nil, "错误：获取群成员列表失败。原因：" + s.san.Error(err), err
	}

	start := time.Now()
	s.opts.Metrics.ScanStarted()
	log.Info().Int("members", len(members)).Msg("group scan started")

	sess.send(ctx, fmt.Sprintf("正在检查群内所有人员（共%d人）……", len(members)))

	state := newScanState(len(members))
	proc, err := batch.NewProcessor[onebot.GroupMember](s.opts.ChunkSize)
	if err != nil {
		return nil, "错误：" + err.Error(), err
	}
	proc.WithProgressCallback(func(p *batch.Progress) {
		snap := p.Snapshot()
		log.Debug().
			Int("chunk", snap.ProcessedBatches).
			Int("chunks", snap.TotalBatches).
			Int("processed", snap.ProcessedItems).
			Float64("percent", snap.PercentComplete).
			Dur("elapsed", snap.ElapsedTime).
			Msg("scan chunk settled")
	})

	_, err = batch.Map(ctx, proc, members, func(ctx context.Context, m onebot.GroupMember) (struct{}, error) {
		s.scanMember(ctx, sess, state, m)
		return struct{}{}, nil
	})
	if err != nil {
		// Only cancellation reaches here; scanMember never fails.
		log.Warn().Err(err).Msg("group scan interrupted")
		return nil, "", err
	}

	s.opts.Metrics.ScanFinished(len(members), time.Since(start))
	log.Info().
		Int("detected", state.Detected).
		Int("severe", state.Severe).
		Dur("elapsed", time.Since(start)).
		Msg("group scan finished")

	return state, "", nil
}

// scanMember looks up, classifies and, if severe, kicks one member. Lookup
// failures are folded into the state.
func (s *Service) scanMember(ctx context.Context, sess Session, st *ScanState, m onebot.GroupMember) {
	defer s.advance(ctx, sess, st)

	res, err := s.api.Query(ctx, strconv.FormatInt(m.UserID, 10))
	if err != nil {
		st.mu.Lock()
		st.keepError(s.san.Error(err))
		st.mu.Unlock()
		return
	}
	if !res.Success() && res.Empty() {
		msg := res.Message
		if msg == "" {
			msg = MsgUnknownAPIError
		}
		st.mu.Lock()
		st.keepError(s.san.Message(msg))
		st.mu.Unlock()
		return
	}

	rec, found := res.Record()
	if !found {
		return
	}
	level, known := rec.Level()
	if !known {
		s.logger(ctx).Warn().
			Int64("user_id", m.UserID).
			Str("level", string(rec.LevelLabel)).
			Msg("blacklist entry has an unknown level; not counted")
		return
	}
	s.opts.Metrics.Hit(level.String())

	var lines []string
	if level == blacklist.LevelSevere {
		lines = s.handleSevere(ctx, sess, m, rec)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.Detected++
	switch level {
	case blacklist.LevelLight:
		st.Light++
	case blacklist.LevelModerate:
		st.Moderate++
	case blacklist.LevelSevere:
		st.Severe++
		st.SevereLines = append(st.SevereLines, lines...)
	}
}

// handleSevere kicks a plain member and returns the report lines for m.
func (s *Service) handleSevere(
	ctx context.Context,
	sess Session,
	m onebot.GroupMember,
	rec blacklist.Record,
) []string {
	lines := []string{fmt.Sprintf("%s（%d）\n违规原因：%s\n登记人：%s\n上黑时间：%s",
		m.Nickname, m.UserID, rec.Description, rec.Registration, rec.AddTime)}

	if m.Role != "" && m.Role != onebot.RoleMember {
		s.opts.Metrics.Kick(metrics.ResultSkipped)
		return append(lines, "  - 该成员为群主/管理员，机器人无权进行踢出操作，请手动处理。")
	}

	started := time.Now()
	entry := newAudit(ctx, ActionKick, sess, m.UserID).WithDetail("group scan: " + string(rec.Description))
	if err := s.mod.SetGroupKick(ctx, sess.GroupID, m.UserID, true); err != nil {
		msg := s.san.Error(err)
		s.opts.Metrics.Kick(metrics.ResultError)
		s.audit(ctx, entry.WithError(msg).WithDuration(started))
		return append(lines, fmt.Sprintf("  - 踢出用户 %s（%d）失败: %s", m.Nickname, m.UserID, msg))
	}
	s.opts.Metrics.Kick(metrics.ResultOK)
	s.audit(ctx, entry.WithDuration(started))
	return lines
}

// advance counts one processed member and emits every newly crossed threshold.
func (s *Service) advance(ctx context.Context, sess Session, st *ScanState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.Processed++
	for _, mark := range st.thresholds.Advance(st.Processed, st.Total) {
		sess.send(ctx, fmt.Sprintf("进度：已完成%d%%（%d/%d）", batch.Percent(mark), st.Processed, st.Total))
	}
}
