package bot

import (
	"context"
	"strings"

	"github.com/rshade/ysyunhei/internal/yunhei"
)

// Command names. They double as cooldown keys and metric labels.
const (
	CmdAdd       = "yunhei.add"
	CmdCheck     = "yunhei.chk"
	CmdAbout     = "yunhei.about"
	CmdSleepWell = "yunhei.sleepwell"
	CmdHelp      = "help"
)

// Render titles.
const (
	TitleAdd   = "云黑添加结果"
	TitleCheck = "云黑查询结果"
	TitleAbout = "关于本插件"
)

type commandInfo struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	// Cooldown applies the per-user command cooldown.
	Cooldown bool
	// Title renders the reply as a card; empty sends plain text.
	Title string
	Run   func(ctx context.Context, sess yunhei.Session, cmd Command) (string, error)
}

func (c *commandInfo) usageLine() string {
	line := c.Usage
	if len(c.Aliases) > 0 {
		line += "（别名：" + strings.Join(c.Aliases, "、") + "）"
	}
	return line + "\n  " + c.Help
}

func (d *Dispatcher) commandTable() []*commandInfo {
	h := d.opts.Handler
	return []*commandInfo{
		{
			Name:     CmdAdd,
			Usage:    "yunhei.add <qqnum> <level> <desc> [bantime]",
			Help:     "将账号添加到云黑。level 取 1/2/3（轻微/中等/严重），严重会踢出并拒绝再次申请；bantime 如 1天2小时30分。",
			Cooldown: true,
			Title:    TitleAdd,
			Run: func(ctx context.Context, sess yunhei.Session, cmd Command) (string, error) {
				return h.Add(ctx, sess, yunhei.AddRequest{
					Account:     cmd.Arg(0),
					Level:       atoiOrZero(cmd.Arg(1)),
					Description: cmd.Arg(2),
					BanTime:     cmd.Arg(3),
				})
			},
		},
		{
			Name:     CmdCheck,
			Aliases:  []string{"yunhei.cx"},
			Usage:    "yunhei.chk [qqnum]",
			Help:     "查询账号是否在云黑中；不填 qqnum 时检查全群成员并踢出严重等级的普通成员。",
			Cooldown: true,
			Title:    TitleCheck,
			Run: func(ctx context.Context, sess yunhei.Session, cmd Command) (string, error) {
				return h.Check(ctx, sess, cmd.Arg(0))
			},
		},
		{
			Name:     CmdAbout,
			Usage:    "yunhei.about",
			Help:     "显示版本、贡献者并检查云黑官网可用性。",
			Cooldown: true,
			Title:    TitleAbout,
			Run: func(ctx context.Context, _ yunhei.Session, _ Command) (string, error) {
				return h.About(ctx), nil
			},
		},
		{
			Name:  CmdSleepWell,
			Usage: "yunhei.sleepwell [confirm]",
			Help:  "精致睡眠：在睡眠时间段内对自己执行禁言，需输入 confirm 确认。",
			Run: func(ctx context.Context, sess yunhei.Session, cmd Command) (string, error) {
				return h.SleepWell(ctx, sess, cmd.Arg(0))
			},
		},
		{
			Name:  CmdHelp,
			Usage: "help [command]",
			Help:  "显示指令说明。",
			Run: func(_ context.Context, _ yunhei.Session, cmd Command) (string, error) {
				return d.help(cmd.Arg(0)), nil
			},
		},
	}
}

// help describes one command, or lists all of them. Unknown names are silent.
func (d *Dispatcher) help(name string) string {
	if name == "" {
		return "指令列表：\n" + d.Usage()
	}
	c, ok := d.commands[strings.ToLower(name)]
	if !ok || c.Name == CmdHelp {
		return ""
	}
	return c.usageLine()
}
