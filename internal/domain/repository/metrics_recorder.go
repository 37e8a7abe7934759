package repository

import "time"

// MetricsRecorder ichki hisoblagichlar
type MetricsRecorder interface {
	RecordUpdate(chatID int64)
	RecordFlush()
	RecordModelCall(d time.Duration, err error)
	RecordTranscription(d time.Duration, err error)
	RecordRateLookup(kind, result string)
	RecordError(kind string)
}
