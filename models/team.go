package models

type TeamSide string

const (
	TeamSideA TeamSide = "A"
	TeamSideB TeamSide = "B"
)

func (s TeamSide) Valid() bool {
	return s == TeamSideA || s == TeamSideB
}

type Team struct {
	Side    TeamSide `json:"-"`
	Name    string   `json:"name"`
	LogoURL string   `json:"logo_url"`
	Color   string   `json:"color"`
}
