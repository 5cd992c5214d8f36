package speech

import "errors"

var (
	ErrSynthesisFailed          = errors.New("speech synthesis failed")
	ErrReferenceVoiceMissing    = errors.New("reference voice sample not found")
	ErrSpeechServiceUnavailable = errors.New("speech service unavailable")
	ErrPlaybackFailed           = errors.New("audio playback failed")
)
