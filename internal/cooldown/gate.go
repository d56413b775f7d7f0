package cooldown

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Policy windows.
const (
	CommandWindow   = 30 * time.Second
	SleepWellWindow = 2 * time.Second
)

// SleepWellDebounced is the reply for a repeated sleepwell confirm.
const SleepWellDebounced = "操作过于频繁，请稍后再试。"

// Gate applies command cooldowns on top of a Store. Store failures are
// logged and the action is allowed.
type Gate struct {
	store           Store
	log             zerolog.Logger
	commandWindow   time.Duration
	sleepWellWindow time.Duration
}

// NewGate wraps store with the default windows.
func NewGate(store Store, logger zerolog.Logger) *Gate {
	return &Gate{
		store:           store,
		log:             logger.With().Str("component", "cooldown").Logger(),
		commandWindow:   CommandWindow,
		sleepWellWindow: SleepWellWindow,
	}
}

// WithWindows overrides the command and debounce windows.
func (g *Gate) WithWindows(command, sleepWell time.Duration) *Gate {
	g.commandWindow = command
	g.sleepWellWindow = sleepWell
	return g
}

// CheckCommand claims cmd for userID. It returns "" when the command may run,
// otherwise the message to send back.
func (g *Gate) CheckCommand(ctx context.Context, userID int64, cmd string) string {
	key := "cmd:" + userKey(userID) + ":" + cmd

	remaining, ok := g.acquire(ctx, key, g.commandWindow)
	if ok {
		return ""
	}

	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("操作过于频繁（%s），请在%d秒后再试。", cmd, secs)
}

// HitSleepWell reports whether a sleepwell confirm from userID in groupID
// arrived within the debounce window of the previous one.
func (g *Gate) HitSleepWell(ctx context.Context, groupID, userID int64) bool {
	group := "pm"
	if groupID != 0 {
		group = strconv.FormatInt(groupID, 10)
	}
	_, ok := g.acquire(ctx, "sleepwell:"+group+":"+userKey(userID), g.sleepWellWindow)
	return !ok
}

func (g *Gate) acquire(ctx context.Context, key string, window time.Duration) (time.Duration, bool) {
	remaining, ok, err := g.store.Acquire(ctx, key, window)
	if err != nil {
		g.log.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cooldown store failed, allowing")
		return 0, true
	}
	return remaining, ok
}

func userKey(userID int64) string {
	if userID == 0 {
		return "unknown"
	}
	return strconv.FormatInt(userID, 10)
}
