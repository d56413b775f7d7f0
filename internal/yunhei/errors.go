package yunhei

import "errors"

// User-facing texts shared by several commands.
const (
	MsgNotInGroup       = "错误：请在群组内使用命令。"
	MsgBotNotAdmin      = "错误：本功能需要机器人为群组管理员，请联系群主设置。"
	MsgBotRoleCheckFail = "错误：检查机器人权限失败，可能是机器人未加入该群或API出现问题。原因："
	MsgNoPermission     = "错误：您没有使用该命令的权限。"
	MsgUnknownAPIError  = "未知API错误"
)

// ErrRemote marks a non-success answer from the blacklist service.
var ErrRemote = errors.New("blacklist service refused the request")

// PreconditionError is a failed context or permission check. Its message is
// the localized reply; nothing was called remotely or changed.
type PreconditionError struct {
	Reply string
	// Err is the adapter failure behind the check, if any.
	Err error
}

func (e *PreconditionError) Error() string {
	return e.Reply
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err is a *PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func precondition(reply string) error {
	return &PreconditionError{Reply: reply}
}
