package models

// BpPick is one pick slot in a team's draft: position, hero and the
// player on that hero. All three must be non-empty when publishing;
// drafts may be partial.
type BpPick struct {
	Pos    string `json:"pos"`
	Hero   string `json:"hero"`
	Player string `json:"player"`
}

type BpTeamPayload struct {
	Bans  []string `json:"bans"`
	Picks []BpPick `json:"picks"`
}

// BpPayload is the ban/pick payload for one game. Both sides must be
// present for a draft save to be accepted at all.
type BpPayload struct {
	TeamA *BpTeamPayload `json:"teamA"`
	TeamB *BpTeamPayload `json:"teamB"`
}

type ResultMvp struct {
	Player string `json:"player"`
	Hero   string `json:"hero"`
	KDA    string `json:"kda"`
}

type ResultKeyStats struct {
	DamageShare      string `json:"damage_share"`
	DamageTakenShare string `json:"damage_taken_share"`
	Participation    string `json:"participation"`
}

type ResultPayload struct {
	Winner        TeamSide       `json:"winner"`
	Mvp           ResultMvp      `json:"mvp"`
	KeyStats      ResultKeyStats `json:"key_stats"`
	HighlightText string         `json:"highlight_text,omitempty"`
}
