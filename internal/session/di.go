package session

import (
	"github.com/kavya5cloud/studyroom/internal/announce"
	"github.com/kavya5cloud/studyroom/internal/broadcast"
	"github.com/kavya5cloud/studyroom/internal/config"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Dependencies, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		ch := do.MustInvoke[broadcast.Channel](i)
		an := do.MustInvoke[announce.Announcer](i)
		return Dependencies{
			Store:             repo,
			Channel:           ch,
			Announcer:         an,
			HeartbeatInterval: cfg.HeartbeatInterval(),
		}, nil
	})
}
