package yunhei

import (
	"context"
	"fmt"
	"strings"
)

// MsgNotListed is the reply for an account without an entry.
const MsgNotListed = "查询成功，该用户不在黑名单中。"

// Check looks up account, or scans the whole group when account is empty.
func (s *Service) Check(ctx context.Context, sess Session, account string) (string, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return s.ScanGroup(ctx, sess)
	}
	if err := s.checkPreconditions(ctx, sess); err != nil {
		return err.Error(), err
	}
	return s.Lookup(ctx, account)
}

// Lookup queries one account and formats its card. It performs no
// permission checks and is used directly by the CLI.
func (s *Service) Lookup(ctx context.Context, account string) (string, error) {
	res, err := s.api.Query(ctx, account)
	if err != nil {
		return "错误：查询用户失败，请检查网络连接或API状态。原因：" + s.san.Error(err), err
	}
	if !res.Success() {
		return "错误：查询用户失败。API返回：" + s.orUnknown(res.Message), fmt.Errorf("%w: %s", ErrRemote, res.Message)
	}

	rec, ok := res.Record()
	if !ok {
		return MsgNotListed, nil
	}

	shown := string(rec.Account)
	if shown == "" {
		shown = account
	}
	nickname := s.nickname(ctx, shown)

	return fmt.Sprintf("账号类型：%s\n用户名：%s\nQQ号：%s\n违规原因：%s\n严重等级：%s\n登记人：%s\n上黑时间：%s\n过期时间：%s\n查询云黑请见：%s",
		rec.Platform, nickname, rec.Account, rec.Description, rec.LevelLabel,
		rec.Registration, rec.AddTime, rec.Expiration, s.opts.SiteURL), nil
}
