package announce

import (
	"github.com/kavya5cloud/studyroom/internal/config"
	"github.com/kavya5cloud/studyroom/internal/discord"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/kavya5cloud/studyroom/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Announcer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		wh := do.MustInvoke[webhook.Sender](i)
		if cfg.DiscordToken == "" {
			return NewService(repo, nil, "", wh), nil
		}
		dc := do.MustInvoke[discord.Client](i)
		svc := NewService(repo, dc, cfg.DiscordAnnounceChannelID, wh)
		svc.CheckDiscordChannel()
		return svc, nil
	})
}
