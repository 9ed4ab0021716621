package store

import (
	"context"
	"strings"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/snapshot"
)

func (st *Store) Settings() domain.Settings {
	var out domain.Settings
	st.view(func(s *snapshot.Snapshot) { out = s.Settings() })
	return out
}

// UpdateSettings replaces organization and theme and merges module toggles
// key by key, so toggles missing from in keep their value.
func (st *Store) UpdateSettings(ctx context.Context, in domain.Settings) (domain.Settings, error) {
	switch in.Theme.Mode {
	case "", "light", "dark", "system":
	default:
		return domain.Settings{}, invalidf("unknown theme mode %q", in.Theme.Mode)
	}
	if in.Theme.FontScale < 0 {
		return domain.Settings{}, invalidf("font scale must not be negative")
	}
	if strings.TrimSpace(in.Organization.Name) == "" {
		return domain.Settings{}, invalidf("organization name is required")
	}

	var out domain.Settings
	err := st.mutate(ctx, "UpdateSettings", func(t *tx) error {
		theme := in.Theme
		if theme.Mode == "" {
			theme.Mode = t.s.Theme.Mode
		}
		if theme.FontScale == 0 {
			theme.FontScale = t.s.Theme.FontScale
		}
		t.s.Organization = in.Organization
		t.s.Theme = theme
		for module, enabled := range in.Modules {
			t.s.Modules[module] = enabled
		}
		out = t.s.Settings()
		return nil
	})
	return out, err
}
