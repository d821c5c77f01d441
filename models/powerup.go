package models

// PowerUpDoubleWinnings is the only power-up kind in play.
const PowerUpDoubleWinnings = "2x_MULTIPLIER"

// PowerUp tracks the held/applied multiplier. Applied persists for the rest
// of the match and doubles the aggregate full-match winnings, not each bet.
type PowerUp struct {
	Held    string `json:"held,omitempty"`
	Applied bool   `json:"applied"`
}
