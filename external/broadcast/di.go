package broadcast

import (
	"log/slog"

	"github.com/kavya5cloud/studyroom/internal/broadcast"
	"github.com/kavya5cloud/studyroom/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (broadcast.Channel, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.UsesNATS() {
			slog.Info("NATS_URL not set; room broadcasts stay in this process")
			return broadcast.NewHub(), nil
		}
		ch, err := NewNATSChannel(DefaultNATSConfig(cfg.NATSURL))
		if err != nil {
			return nil, err
		}
		return ch, nil
	})
}
