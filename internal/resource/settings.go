package resource

import (
	"context"
	"log/slog"

	"github.com/shopadmin/internal/model"
)

type SettingsBackend interface {
	Backend[model.Setting, model.SettingInput]
	Public(ctx context.Context) (map[string]string, error)
}

// Settings is keyed by Setting.Key.
type Settings struct {
	*Synchronizer[model.Setting, model.SettingInput]
	backend SettingsBackend
}

func NewSettings(backend SettingsBackend, logger *slog.Logger) *Settings {
	msgs := messagesFor("setting", "settings")
	msgs.List = "Failed to load settings"
	return &Settings{
		Synchronizer: NewSynchronizer("settings", Backend[model.Setting, model.SettingInput](backend),
			func(s model.Setting) string { return s.Key }, msgs, logger),
		backend: backend,
	}
}

// Public returns the settings visible without signing in. It does not
// touch the cache.
func (s *Settings) Public(ctx context.Context) (_ map[string]string, err error) {
	s.begin()
	defer func() { s.end("public", err, "Failed to load settings") }()

	values, err := s.backend.Public(ctx)
	if err != nil {
		return nil, err
	}
	return values, nil
}
