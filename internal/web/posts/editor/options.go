package editor

import (
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"

	"github.com/mohamadflefel/JCCAdmin/library/log"
)

const (
	// emptyImage is a transparent 1x1 gif shown while a post has no cover image
	emptyImage = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

	defaultNotifyDismiss   = 5 * time.Second
	defaultPreviewMaxWidth = 800
	defaultMaxImageBytes   = 10 * 1024 * 1024
	dateLayout             = "2006-01-02"
)

// Options tunes a Controller.
type Options struct {
	// PlaceholderImage is shown when the variant has no image
	PlaceholderImage string
	// PreserveManualSlug stops title edits from overwriting a slug the operator typed
	PreserveManualSlug bool
	// NotifyDismiss is the auto dismiss delay of success and warning messages
	NotifyDismiss time.Duration
	// PreviewMaxWidth bounds the width of rendered image previews
	PreviewMaxWidth int
	// MaxImageBytes rejects larger image selections
	MaxImageBytes int
	Logger        logSDK.Logger
}

// OptionsFromConfig reads `settings.editor.*` from the shared config.
func OptionsFromConfig() Options {
	return Options{
		PlaceholderImage:   gconfig.Shared.GetString("settings.editor.placeholder_image"),
		PreserveManualSlug: gconfig.Shared.GetBool("settings.editor.preserve_manual_slug"),
		NotifyDismiss: time.Duration(
			gconfig.Shared.GetInt("settings.editor.notify_dismiss_ms")) * time.Millisecond,
		PreviewMaxWidth: gconfig.Shared.GetInt("settings.editor.preview_max_width"),
		MaxImageBytes:   gconfig.Shared.GetInt("settings.editor.max_image_bytes"),
	}
}

func (o *Options) fillDefaults() {
	if o.PlaceholderImage == "" {
		o.PlaceholderImage = emptyImage
	}
	if o.NotifyDismiss <= 0 {
		o.NotifyDismiss = defaultNotifyDismiss
	}
	if o.PreviewMaxWidth <= 0 {
		o.PreviewMaxWidth = defaultPreviewMaxWidth
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = defaultMaxImageBytes
	}
	if o.Logger == nil {
		o.Logger = log.Logger.Named("post_editor")
	}
}
