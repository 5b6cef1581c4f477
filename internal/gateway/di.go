package gateway

import (
	"github.com/kavya5cloud/studyroom/internal/assistant"
	"github.com/kavya5cloud/studyroom/internal/config"
	"github.com/kavya5cloud/studyroom/internal/lobby"
	"github.com/kavya5cloud/studyroom/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		lobbySvc := do.MustInvoke[*lobby.Service](i)
		sessionDeps := do.MustInvoke[session.Dependencies](i)
		completer := do.MustInvoke[assistant.Completer](i)

		connCfg := DefaultConnectionConfig()
		connCfg.AllowedOrigins = cfg.AllowedOrigins
		return NewHandler(Dependencies{
			Lobby:     lobbySvc,
			Session:   sessionDeps,
			Completer: completer,
		}, connCfg), nil
	})
}
