package netcode

// ProtocolVersion is the first byte of every frame. Peers built from different
// protocol revisions refuse each other's frames instead of misreading them.
const ProtocolVersion uint8 = 1

// MsgType is the fixed-width frame discriminator, second byte of every frame.
type MsgType uint8

const (
	MsgNone MsgType = iota
	MsgStartGame
	MsgEndTurn
	MsgClientStart
	MsgTileDrawn
	MsgTileMapUpdate
	MsgDiscardUpdate
	MsgDrawnDiscard
	MsgPlaySet
	MsgCelestialPlayed
	MsgGameConcluded
)

var msgTypeNames = map[MsgType]string{
	MsgStartGame:       "start game",
	MsgEndTurn:         "end turn",
	MsgClientStart:     "client start",
	MsgTileDrawn:       "tile drawn",
	MsgTileMapUpdate:   "tile map update",
	MsgDiscardUpdate:   "discard update",
	MsgDrawnDiscard:    "drawn discard",
	MsgPlaySet:         "played set",
	MsgCelestialPlayed: "celestial tile played",
	MsgGameConcluded:   "game concluded",
}

func (m MsgType) String() string {
	if name, ok := msgTypeNames[m]; ok {
		return name
	}
	return "unknown"
}

// CelestialType is the nested discriminator carried by MsgCelestialPlayed.
type CelestialType uint8

const (
	NoCelestial CelestialType = iota
	CelestialRooster
	CelestialOx
	CelestialRabbit
	CelestialSnake
	CelestialMonkey
	CelestialRat
	CelestialDragon
	CelestialPig
)

var celestialNames = map[CelestialType]string{
	CelestialRooster: "ROOSTER",
	CelestialOx:      "OX",
	CelestialRabbit:  "RABBIT",
	CelestialSnake:   "SNAKE",
	CelestialMonkey:  "MONKEY",
	CelestialRat:     "RAT",
	CelestialDragon:  "DRAGON",
	CelestialPig:     "PIG",
}

func (c CelestialType) String() string {
	if name, ok := celestialNames[c]; ok {
		return name
	}
	return "NONE"
}

// MapUpdateReason qualifies a MsgTileMapUpdate snapshot.
type MapUpdateReason uint8

const (
	NoUpdate MapUpdateReason = iota
	RemakePile
)

func (r MapUpdateReason) String() string {
	if r == RemakePile {
		return "remake pile"
	}
	return "no update"
}
