package event

import "time"

// ScanCompleted is the payload of TopicScanCompleted.
type ScanCompleted struct {
	SessionID string
	Interface string
	APCount   int
	Excluded  int
	Manual    bool
	Duration  time.Duration
}

// ScanFailed is the payload of TopicScanFailed.
type ScanFailed struct {
	SessionID string
	Interface string
	Reason    string
	Err       error
	Duration  time.Duration
}

// ScanDiscarded is the payload of TopicScanDiscarded: a result that arrived
// after its session was finalized.
type ScanDiscarded struct {
	SessionID string
	Interface string
}

// SessionStarted is the payload of TopicSessionStarted.
type SessionStarted struct {
	SessionID string
	Interface string
	Adapter   string
}

// SessionEnded is the payload of TopicSessionEnded.
type SessionEnded struct {
	SessionID string
	Scans     int
	TimedOut  bool
}

// SessionSaved is the payload of TopicSessionSaved.
type SessionSaved struct {
	SessionID string
	Path      string
	Scans     int
}
