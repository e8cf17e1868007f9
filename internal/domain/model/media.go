package model

import (
	"time"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/enums"
)

// MediaItem is one image pulled out of a chat message. It lives only for the
// duration of a single evaluation.
type MediaItem struct {
	ChatID    int64
	UserID    int64
	MessageID int
	FileName  string
	MimeHint  string
	Data      []byte
}

// SignalScore is the outcome of one scoring source. OK=false records a source
// failure without blocking fusion of the remaining signals.
type SignalScore struct {
	Source enums.SignalSource
	Value  float64
	OK     bool
	Err    error
}

type FusionResult struct {
	Flagged             bool
	FinalScore          float64
	ContributingSources []enums.SignalSource
}

type OffenseRecord struct {
	ChatID        int64
	UserID        int64
	Offenses      int64
	Muted         bool
	LastOffenseAt time.Time
}

// EnforcementAction records what the actuator attempted for one flagged item.
// Transient, used for logging and tests.
type EnforcementAction struct {
	DeleteAttempted      bool
	DeleteSucceeded      bool
	MuteAttempted        bool
	MuteSucceeded        bool
	MutePermissionDenied bool
	NotifyAttempted      bool
	OffenseCount         int64
}
