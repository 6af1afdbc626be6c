package netcode

// TileRecord is the wire form of a single tile. Partial updates carry only the
// tiles that changed; Snapshot carries every tile plus the undealt deck order.
type TileRecord struct {
	ID          int32  `json:"id"`
	Suit        string `json:"suit"`
	Rank        string `json:"rank"`
	Location    string `json:"location"`
	Debuffed    bool   `json:"debuffed,omitempty"`
	FromDiscard bool   `json:"fromDiscard,omitempty"`
	Row         int    `json:"row"`
	Col         int    `json:"col"`
}

// Snapshot is the full-state wire form of a TileSet. Applying the same
// snapshot twice leaves the model unchanged. Deck and Discard carry container
// order, which the location flags alone cannot.
type Snapshot struct {
	Tiles   []TileRecord `json:"tiles"`
	Deck    []int32      `json:"deck"`
	Discard []int32      `json:"discard,omitempty"`
}
