package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/ysyunhei/internal/bot"
	"github.com/rshade/ysyunhei/internal/config"
	"github.com/rshade/ysyunhei/internal/yunhei"
)

// NewAboutCmd prints version, contributors and the blacklist site status.
func NewAboutCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show version information and blacklist site status",
		Annotations: map[string]string{
			annotationConfigOptional: "true",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			svc := yunhei.NewService(newBlacklistClient(cfg, nil), nil, serviceOptions(cfg, nil, nil))
			text := svc.About(cmd.Context())
			cmd.Println(terminalRenderer(cmd, plain).Render(cmd.Context(), bot.TitleAbout, text))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print text without a border")

	return cmd
}
