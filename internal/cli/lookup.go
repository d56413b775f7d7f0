package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/ysyunhei/internal/bot"
	"github.com/rshade/ysyunhei/internal/config"
	"github.com/rshade/ysyunhei/internal/render"
	"github.com/rshade/ysyunhei/internal/yunhei"
)

const terminalMaxWidth = 80

// NewLookupCmd creates the lookup command, which queries one account from the
// terminal without a chat connection.
func NewLookupCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "lookup <account>",
		Short: "Look up one account in the cloud blacklist",
		Example: `  # Show the blacklist entry of an account
  ysyunhei lookup 123456789

  # Plain output for scripts
  ysyunhei lookup 123456789 --plain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetGlobalConfig()
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}

			svc := yunhei.NewService(newBlacklistClient(cfg, nil), nil, serviceOptions(cfg, nil, nil))
			text, err := svc.Lookup(cmd.Context(), args[0])
			cmd.Println(terminalRenderer(cmd, plain).Render(cmd.Context(), bot.TitleCheck, text))
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print text without a border")

	return cmd
}

// terminalRenderer boxes output on a terminal and prints plain text otherwise.
func terminalRenderer(cmd *cobra.Command, plain bool) render.Renderer {
	if plain {
		return render.PlainText{}
	}
	f, ok := cmd.OutOrStdout().(interface{ Fd() uintptr })
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return render.PlainText{}
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 0
	}
	return render.Terminal{Width: min(width, terminalMaxWidth)}
}
