package onebot

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// OneBot v11 action names.
const (
	ActionGetGroupMemberInfo = "get_group_member_info"
	ActionGetGroupMemberList = "get_group_member_list"
	ActionSetGroupKick       = "set_group_kick"
	ActionSetGroupBan        = "set_group_ban"
	ActionGetStrangerInfo    = "get_stranger_info"
	ActionSendGroupMsg       = "send_group_msg"
	ActionSendPrivateMsg     = "send_private_msg"
)

// GetGroupMemberInfo returns one member of a group.
func (c *Client) GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (GroupMember, error) {
	data, err := c.Call(ctx, ActionGetGroupMemberInfo, map[string]any{
		"group_id": groupID,
		"user_id":  userID,
		"no_cache": true,
	})
	if err != nil {
		return GroupMember{}, err
	}
	m := parseMember(data)
	if m.GroupID == 0 {
		m.GroupID = groupID
	}
	return m, nil
}

// GetGroupMemberList returns every member of a group, owner and admins included.
func (c *Client) GetGroupMemberList(ctx context.Context, groupID int64) ([]GroupMember, error) {
	data, err := c.Call(ctx, ActionGetGroupMemberList, map[string]any{
		"group_id": groupID,
		"no_cache": true,
	})
	if err != nil {
		return nil, err
	}

	members := make([]GroupMember, 0, len(data.Array()))
	data.ForEach(func(_, v gjson.Result) bool {
		m := parseMember(v)
		if m.GroupID == 0 {
			m.GroupID = groupID
		}
		members = append(members, m)
		return true
	})
	return members, nil
}

// SetGroupKick removes a member; reject blocks future join requests.
func (c *Client) SetGroupKick(ctx context.Context, groupID, userID int64, reject bool) error {
	_, err := c.Call(ctx, ActionSetGroupKick, map[string]any{
		"group_id":           groupID,
		"user_id":            userID,
		"reject_add_request": reject,
	})
	return err
}

// SetGroupBan mutes a member; zero duration lifts the mute.
func (c *Client) SetGroupBan(ctx context.Context, groupID, userID int64, d time.Duration) error {
	_, err := c.Call(ctx, ActionSetGroupBan, map[string]any{
		"group_id": groupID,
		"user_id":  userID,
		"duration": int64(d / time.Second),
	})
	return err
}

// GetStrangerInfo returns an account's public profile.
func (c *Client) GetStrangerInfo(ctx context.Context, userID int64) (Stranger, error) {
	data, err := c.Call(ctx, ActionGetStrangerInfo, map[string]any{
		"user_id":  userID,
		"no_cache": false,
	})
	if err != nil {
		return Stranger{}, err
	}
	return Stranger{UserID: data.Get("user_id").Int(), Nickname: data.Get("nickname").String()}, nil
}

// SendGroupMsg posts message (CQ code allowed) to a group.
func (c *Client) SendGroupMsg(ctx context.Context, groupID int64, message string) error {
	_, err := c.Call(ctx, ActionSendGroupMsg, map[string]any{
		"group_id": groupID,
		"message":  message,
	})
	return err
}

// SendPrivateMsg posts message to a user.
func (c *Client) SendPrivateMsg(ctx context.Context, userID int64, message string) error {
	_, err := c.Call(ctx, ActionSendPrivateMsg, map[string]any{
		"user_id": userID,
		"message": message,
	})
	return err
}

// Reply answers evt in the chat it came from.
func (c *Client) Reply(ctx context.Context, evt MessageEvent, message string) error {
	if evt.IsGroup() {
		return c.SendGroupMsg(ctx, evt.GroupID, message)
	}
	return c.SendPrivateMsg(ctx, evt.UserID, message)
}
