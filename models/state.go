package models

// GameView is the broadcast-visible slice of a game: published payloads
// and the lock flag, never drafts.
type GameView struct {
	Bp       *BpPayload     `json:"bp"`
	BpLocked bool           `json:"bp_locked"`
	Result   *ResultPayload `json:"result"`
}

// AdminGameView adds the draft scratch buffers for the control console.
type AdminGameView struct {
	GameView
	BpDraft     *BpPayload     `json:"bp_draft"`
	ResultDraft *ResultPayload `json:"result_draft"`
}

// PublicState is the full public view: what every passive viewer renders
// and what the init snapshot carries. Games are keyed by their string
// game number.
type PublicState struct {
	Match Match                `json:"match"`
	Teams map[TeamSide]Team    `json:"teams"`
	Games map[string]*GameView `json:"games"`
}

// AdminState is the public view plus drafts.
type AdminState struct {
	Match Match                     `json:"match"`
	Teams map[TeamSide]Team         `json:"teams"`
	Games map[string]*AdminGameView `json:"games"`
}
