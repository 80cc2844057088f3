package models

import "time"

// Rooms group whispers by topic. The set is closed: anything outside it
// collapses to RoomGeneral via CoerceRoom, it never errors.
const (
	RoomGeneral  = "general"
	RoomLove     = "love"
	RoomWork     = "work"
	RoomFamily   = "family"
	RoomHealth   = "health"
	RoomMidnight = "midnight"
)

// RoomAll is the wildcard filter value accepted by the matcher.
const RoomAll = "all"

var validRooms = map[string]bool{
	RoomGeneral:  true,
	RoomLove:     true,
	RoomWork:     true,
	RoomFamily:   true,
	RoomHealth:   true,
	RoomMidnight: true,
}

// CoerceRoom maps any incoming room value onto the closed room set.
// Unknown or empty values land in the general room.
func CoerceRoom(room string) string {
	if validRooms[room] {
		return room
	}
	return RoomGeneral
}

// Rooms returns the closed room set, default first.
func Rooms() []string {
	return []string{RoomGeneral, RoomLove, RoomWork, RoomFamily, RoomHealth, RoomMidnight}
}

// Whisper statuses. Hidden is reached when reports cross the threshold,
// deleted only by an admin. Both transitions are one-way.
const (
	WhisperActive  = "active"
	WhisperHidden  = "hidden"
	WhisperDeleted = "deleted"
)

// Reply statuses.
const (
	ReplyVisible = "visible"
	ReplyHidden  = "hidden"
	ReplyDeleted = "deleted"
)

// Identity is the record behind an opaque access key. Created lazily the
// first time a well-formed key shows up.
type Identity struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Key       string    `gorm:"uniqueIndex;not null" json:"key"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	Banned    bool      `gorm:"not null;default:false" json:"banned"`
	CreatedAt time.Time `json:"createdAt"`
}

// Whisper is a single anonymous entry. ReplyCount counts replies ever
// created against it and is never decremented; it throttles matching
// visibility rather than displaying the currently-visible reply count.
type Whisper struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Mood        string    `gorm:"not null" json:"mood"`
	Text        string    `gorm:"not null" json:"text"`
	Room        string    `gorm:"not null;index" json:"room"`
	AuthorKey   string    `gorm:"not null;index" json:"-"` // whispers stay anonymous
	Status      string    `gorm:"not null;default:active;index" json:"-"`
	ReportCount int       `gorm:"not null;default:0" json:"-"`
	ReplyCount  int       `gorm:"not null;default:0" json:"replyCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reply is an answer to a whisper. IsAuthorReply is fixed at creation
// time: true iff the responder key equals the parent whisper's author key.
type Reply struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	WhisperID     uint      `gorm:"not null;index" json:"whisperId"`
	Text          string    `gorm:"not null" json:"text"`
	ResponderKey  string    `gorm:"not null;index" json:"-"`
	IsAuthorReply bool      `gorm:"not null;default:false" json:"isAuthorReply"`
	Status        string    `gorm:"not null;default:visible;index" json:"-"`
	ReportCount   int       `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}
