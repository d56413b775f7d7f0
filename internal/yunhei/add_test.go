package yunhei

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/logging"
)

func TestAdd_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     int
		banTime   string
		label     string
		measure   string
		kicked    []int64
		banned    []banCall
		retention int
	}{
		{
			name:      "light",
			level:     1,
			label:     blacklist.LabelLight,
			measure:   "记录违规信息，时长一年",
			retention: blacklist.OneYearSeconds,
		},
		{
			name:    "moderate with mute",
			level:   2,
			banTime: "1天2小时30分",
			label:   blacklist.LabelModerate,
			measure: "永久记录违规信息并禁言1天2小时30分",
			banned:  []banCall{{user: 123, d: 26*time.Hour + 30*time.Minute}},
		},
		{
			name:    "severe kicks",
			level:   3,
			label:   blacklist.LabelSevere,
			measure: "踢出群并拒绝再次申请，永久记录违规信息",
			kicked:  []int64{123},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, mod := newFakeAPI(), newFakeMod()
			api.afterAdd = listed("123", tt.label, "刷屏（2024-05-01）")
			mod.strangers[123] = "小明"
			audit := &memAudit{}
			ctx := logging.ContextWithAuditLogger(context.Background(), audit)
			svc := newTestService(t, api, mod)

			reply, err := svc.Add(ctx, groupSession(nil), AddRequest{
				Account: "123", Level: tt.level, Description: "刷屏", BanTime: tt.banTime,
			})
			require.NoError(t, err)

			assert.Equal(t, "已将小明（123）"+tt.measure+"。\n违规原因：刷屏（2024-05-01）\n严重程度："+tt.label+
				"\n措施："+tt.measure+"\n登记人：管理A\n上黑时间：2024-05-01 10:00:00", reply)

			require.Len(t, api.added, 1)
			added := api.added[0]
			assert.Equal(t, "123", added.Account)
			assert.Equal(t, "管理A", added.Registration)
			assert.Equal(t, "刷屏（2024-05-01）", added.Description)
			assert.Equal(t, tt.retention, added.Level.Expiration())
			assert.Equal(t, 2, api.queries["123"], "pre-check and final read")

			assert.Equal(t, tt.kicked, mod.kicked)
			assert.Equal(t, tt.banned, mod.bans)
			assert.NotEmpty(t, audit.entries)
			assert.Equal(t, ActionAdd, audit.entries[0].Action)
		})
	}
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  AddRequest
		want string
	}{
		{"missing account", AddRequest{Level: 1, Description: "x"}, MsgAddUsage},
		{"missing level", AddRequest{Account: "1", Description: "x"}, MsgAddUsage},
		{"missing desc", AddRequest{Account: "1", Level: 1, Description: " "}, MsgAddUsage},
		{"level out of range", AddRequest{Account: "1", Level: 4, Description: "x"}, MsgAddBadLevel},
		{"account not numeric", AddRequest{Account: "abc", Level: 1, Description: "x"}, MsgAddBadAccount},
		{"unparseable ban time", AddRequest{Account: "1", Level: 1, Description: "x", BanTime: "一会儿"}, MsgAddBadBanTime},
		{"ban time over the maximum", AddRequest{Account: "1", Level: 1, Description: "x", BanTime: "31天"}, MsgAddBadBanTime},
		{"ban time that would overflow", AddRequest{Account: "1", Level: 1, Description: "x", BanTime: "213504天"}, MsgAddBadBanTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, mod := newFakeAPI(), newFakeMod()
			svc := newTestService(t, api, mod)

			reply, err := svc.Add(context.Background(), groupSession(nil), tt.req)
			require.ErrorIs(t, err, ErrInvalidArgs)
			assert.Equal(t, tt.want, reply)
			assert.Zero(t, api.totalQueries())
			assert.Empty(t, api.added)
		})
	}
}

func TestAdd_Failures(t *testing.T) {
	req := AddRequest{Account: "123", Level: 3, Description: "广告"}

	t.Run("not in group", func(t *testing.T) {
		api := newFakeAPI()
		svc := newTestService(t, api, newFakeMod())
		sess := groupSession(nil)
		sess.GroupID = 0

		reply, err := svc.Add(context.Background(), sess, req)
		assert.True(t, IsPrecondition(err))
		assert.Equal(t, MsgNotInGroup, reply)
		assert.Empty(t, api.added)
	})

	t.Run("pre-check cannot reach service", func(t *testing.T) {
		api := newFakeAPI()
		api.results["123"] = &blacklist.Result{Code: 0, Message: "维护中"}
		svc := newTestService(t, api, newFakeMod())

		reply, err := svc.Add(context.Background(), groupSession(nil), req)
		require.ErrorIs(t, err, ErrRemote)
		assert.Equal(t, "错误：无法与云黑系统通信。API返回：维护中", reply)
		assert.Empty(t, api.added)
	})

	t.Run("insert refused", func(t *testing.T) {
		api := newFakeAPI()
		api.addRes = &blacklist.Result{Code: 0}
		mod := newFakeMod()
		svc := newTestService(t, api, mod)

		reply, err := svc.Add(context.Background(), groupSession(nil), req)
		require.ErrorIs(t, err, ErrRemote)
		assert.Equal(t, "错误：添加用户失败。API返回：未知错误", reply)
		assert.Empty(t, mod.kicked)
	})

	t.Run("insert transport error", func(t *testing.T) {
		api := newFakeAPI()
		api.addErr = errors.New("POST ?api_key=SECRET123: EOF")
		svc := newTestService(t, api, newFakeMod())

		reply, err := svc.Add(context.Background(), groupSession(nil), req)
		require.Error(t, err)
		assert.Equal(t, MsgAddUnexpected+"POST ?api_key=[REDACTED] EOF", reply)
	})

	t.Run("kick fails", func(t *testing.T) {
		api, mod := newFakeAPI(), newFakeMod()
		mod.kickErrs[123] = errors.New("owner cannot be kicked")
		svc := newTestService(t, api, mod)

		reply, err := svc.Add(context.Background(), groupSession(nil), req)
		require.Error(t, err)
		assert.Equal(t, "踢出用户失败，可能是权限不足或对方是群主/管理员。错误信息：owner cannot be kicked", reply)
		assert.Len(t, api.added, 1, "the entry stays registered")
	})

	t.Run("mute fails", func(t *testing.T) {
		api, mod := newFakeAPI(), newFakeMod()
		mod.banErr = errors.New("no permission")
		svc := newTestService(t, api, mod)

		reply, err := svc.Add(context.Background(), groupSession(nil), AddRequest{
			Account: "123", Level: 1, Description: "x", BanTime: "10分钟",
		})
		require.Error(t, err)
		assert.Equal(t, "禁言用户失败，可能是权限不足或对方是群主/管理员。错误信息：no permission", reply)
	})

	t.Run("final read refused", func(t *testing.T) {
		api := newFakeAPI()
		api.afterAdd = &blacklist.Result{Code: 0, Message: "busy"}
		svc := newTestService(t, api, newFakeMod())

		reply, err := svc.Add(context.Background(), groupSession(nil), AddRequest{Account: "123", Level: 1, Description: "x"})
		require.ErrorIs(t, err, ErrRemote)
		assert.Equal(t, "成功添加用户到云黑，但获取最终信息时出错。API返回：busy", reply)
	})

	t.Run("final read empty", func(t *testing.T) {
		svc := newTestService(t, newFakeAPI(), newFakeMod())

		reply, err := svc.Add(context.Background(), groupSession(nil), AddRequest{Account: "123", Level: 1, Description: "x"})
		require.NoError(t, err)
		assert.Equal(t, MsgAddNoFinalInfo, reply)
	})
}
