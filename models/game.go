package models

import (
	"encoding/json"
	"time"
)

// PublishKind selects which published chain of a game an operation
// addresses: the ban/pick payload or the result payload.
type PublishKind string

const (
	PublishKindBp     PublishKind = "bp"
	PublishKindResult PublishKind = "result"
)

func (k PublishKind) Valid() bool {
	return k == PublishKindBp || k == PublishKindResult
}

// Game is one game of the match. Draft fields are an admin-only scratch
// buffer; published fields are the broadcast-visible truth. The version
// fields point at the publish_history snapshot currently published
// (0 = nothing published yet).
type Game struct {
	GameNo int

	BpDraft            *BpPayload
	BpPublished        *BpPayload
	BpPublishedAt      *time.Time
	BpPublishedVersion int
	BpLocked           bool

	ResultDraft            *ResultPayload
	ResultPublished        *ResultPayload
	ResultPublishedAt      *time.Time
	ResultPublishedVersion int
}

// PublishRecord is one append-only publish history row. Versions within
// a (game, kind) chain start at 1 and only ever grow; rollback moves the
// game's version pointer, it never rewrites history.
type PublishRecord struct {
	GameNo    int             `json:"game_no"`
	Kind      PublishKind     `json:"kind"`
	Version   int             `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
