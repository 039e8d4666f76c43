package ui

import (
	"agentui/model"
)

// Message type aliases - these are defined in the model package
type agentsLoadedMsg = model.AgentsLoadedMsg
type historyLoadedMsg = model.HistoryLoadedMsg
type sendSettledMsg = model.SendSettledMsg
type stateSavedMsg = model.StateSavedMsg
type transcriptExportedMsg = model.TranscriptExportedMsg

// noticeKind controls how the status line renders a notice.
type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeError
)

type notice struct {
	text string
	kind noticeKind
}
