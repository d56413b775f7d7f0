package onebot

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Group roles reported by get_group_member_info.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Message types of inbound message events.
const (
	MessageTypeGroup   = "group"
	MessageTypePrivate = "private"
)

// GroupMember is one entry of a group's member list.
type GroupMember struct {
	GroupID  int64
	UserID   int64
	Nickname string
	Card     string
	Role     string
}

// IsPrivileged reports whether the member is the owner or an admin.
func (m GroupMember) IsPrivileged() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// DisplayName prefers the group card over the nickname.
func (m GroupMember) DisplayName() string {
	if m.Card != "" {
		return m.Card
	}
	return m.Nickname
}

// Stranger is the public profile of any account.
type Stranger struct {
	UserID   int64
	Nickname string
}

// MessageEvent is an inbound chat message.
type MessageEvent struct {
	MessageType string
	MessageID   int64
	SelfID      int64
	GroupID     int64
	UserID      int64
	RawMessage  string
	Sender      GroupMember
}

// IsGroup reports whether the message was posted in a group.
func (e MessageEvent) IsGroup() bool {
	return e.MessageType == MessageTypeGroup && e.GroupID != 0
}

// ActionError is returned when the implementation rejects an action.
type ActionError struct {
	Action  string
	RetCode int64
	Message string
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("onebot %s failed: retcode %d", e.Action, e.RetCode)
	}
	return fmt.Sprintf("onebot %s failed: retcode %d: %s", e.Action, e.RetCode, e.Message)
}

func parseMember(v gjson.Result) GroupMember {
	return GroupMember{
		GroupID:  v.Get("group_id").Int(),
		UserID:   v.Get("user_id").Int(),
		Nickname: v.Get("nickname").String(),
		Card:     v.Get("card").String(),
		Role:     v.Get("role").String(),
	}
}

func parseMessageEvent(payload []byte) (MessageEvent, bool) {
	root := gjson.ParseBytes(payload)
	if root.Get("post_type").String() != "message" {
		return MessageEvent{}, false
	}

	raw := root.Get("raw_message").String()
	if raw == "" {
		if msg := root.Get("message"); msg.Type == gjson.String {
			raw = msg.String()
		} else if msg.IsArray() {
			raw = textFromSegments(msg)
		}
	}

	sender := parseMember(root.Get("sender"))
	sender.GroupID = root.Get("group_id").Int()
	if sender.UserID == 0 {
		sender.UserID = root.Get("user_id").Int()
	}

	return MessageEvent{
		MessageType: root.Get("message_type").String(),
		MessageID:   root.Get("message_id").Int(),
		SelfID:      root.Get("self_id").Int(),
		GroupID:     root.Get("group_id").Int(),
		UserID:      root.Get("user_id").Int(),
		RawMessage:  raw,
		Sender:      sender,
	}, true
}

// textFromSegments joins the text segments of an array-form message.
func textFromSegments(msg gjson.Result) string {
	var out string
	msg.ForEach(func(_, seg gjson.Result) bool {
		if seg.Get("type").String() == "text" {
			out += seg.Get("data.text").String()
		}
		return true
	})
	return out
}
