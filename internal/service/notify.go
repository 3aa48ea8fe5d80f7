package service

import (
	"pecadir/internal/domain"
	"pecadir/internal/logger"
)

// notifyPreviewLimit caps how many channel names one announcement lists
const notifyPreviewLimit = 5

// LogNotificationSink announces newly found favorite channels on the
// log. It satisfies domain.NotificationSink; a desktop or push sink
// would replace it without touching the pipeline.
type LogNotificationSink struct {
	log *logger.Logger
}

// NewLogNotificationSink creates a sink writing to log
func NewLogNotificationSink(log *logger.Logger) *LogNotificationSink {
	return &LogNotificationSink{log: log}
}

// NotifyNewChannels logs one aggregated announcement
func (s *LogNotificationSink) NotifyNewChannels(channels []*domain.LiveChannel) error {
	if len(channels) == 0 {
		return nil
	}

	preview := make([]string, 0, notifyPreviewLimit)
	for _, ch := range channels {
		if len(preview) == notifyPreviewLimit {
			break
		}
		preview = append(preview, ch.Name)
	}

	s.log.Info("new favorite channels on air", map[string]interface{}{
		"count":   len(channels),
		"preview": preview,
	})
	return nil
}
