package app

import (
	"time"

	"github.com/flowgrid/flowgrid/internal/config"
	"github.com/flowgrid/flowgrid/internal/registry"
	"github.com/flowgrid/flowgrid/modules/ai_logic"
	"github.com/flowgrid/flowgrid/modules/audio_input"
	"github.com/flowgrid/flowgrid/modules/comment"
	"github.com/flowgrid/flowgrid/modules/image_generation"
	"github.com/flowgrid/flowgrid/modules/image_input"
	"github.com/flowgrid/flowgrid/modules/preview"
	"github.com/flowgrid/flowgrid/modules/react_component"
	"github.com/flowgrid/flowgrid/modules/realtime_conversation"
	"github.com/flowgrid/flowgrid/modules/switch_gate"
	"github.com/flowgrid/flowgrid/modules/text_generation"
	"github.com/flowgrid/flowgrid/modules/text_input"
	"github.com/flowgrid/flowgrid/modules/transcription"
)

// coreModules assembles the built-in executor set for one engine instance.
// Module construction depends on config (the realtime conversation server),
// so this is a function rather than a package-level slice.
func coreModules(cfg *config.Config) []registry.Module {
	return []registry.Module{
		&text_input.Module{},
		&image_input.Module{},
		&audio_input.Module{},
		&text_generation.Module{},
		&image_generation.Module{},
		&ai_logic.Module{},
		&comment.Module{},
		&react_component.Module{},
		&realtime_conversation.Module{
			ServerURL: cfg.RealtimeURL,
			Timeout:   10 * time.Second,
		},
		&transcription.Module{},
		&preview.Module{},
		&switch_gate.Module{},
	}
}
