package yunhei

import (
	"context"
	"time"

	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/logging"
	"github.com/rshade/ysyunhei/internal/onebot"
)

// Blacklist is the remote registry. *blacklist.Client satisfies it.
type Blacklist interface {
	Query(ctx context.Context, account string) (*blacklist.Result, error)
	Add(ctx context.Context, in blacklist.AddRequest) (*blacklist.Result, error)
}

// Moderator is the part of the chat adapter the commands need.
// *onebot.Client satisfies it.
type Moderator interface {
	GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (onebot.GroupMember, error)
	GetGroupMemberList(ctx context.Context, groupID int64) ([]onebot.GroupMember, error)
	SetGroupKick(ctx context.Context, groupID, userID int64, reject bool) error
	SetGroupBan(ctx context.Context, groupID, userID int64, d time.Duration) error
	GetStrangerInfo(ctx context.Context, userID int64) (onebot.Stranger, error)
}

// SendFunc delivers plain text to the chat the command came from.
type SendFunc func(ctx context.Context, text string) error

// Session identifies where a command was issued.
type Session struct {
	// GroupID is zero for private chats.
	GroupID int64
	UserID  int64
	SelfID  int64
	Send    SendFunc
}

// InGroup reports whether the command was issued in a group.
func (s Session) InGroup() bool {
	return s.GroupID != 0
}

// send delivers text and only logs failures; a lost progress line must not
// stop a scan.
func (s Session) send(ctx context.Context, text string) {
	if s.Send == nil {
		return
	}
	if err := s.Send(ctx, text); err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "yunhei").
			Int64("group_id", s.GroupID).
			Err(err).
			Msg("failed to deliver message")
	}
}
