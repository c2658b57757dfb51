package invitation

import "time"

// Status represents the lifecycle state of an invitation
type Status string

const (
	StatusRecruiting Status = "recruiting"
	StatusFull       Status = "full"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// InstanceType represents the access tier of the VRChat instance
type InstanceType string

const (
	InstanceGroup      InstanceType = "group"
	InstanceFriend     InstanceType = "friend"
	InstanceFriendPlus InstanceType = "friendplus"
	InstancePublic     InstanceType = "public"
)

// RequiresProfile reports whether the instance type needs the host's
// VRChat profile URL so participants can send friend requests.
func (t InstanceType) RequiresProfile() bool {
	return t == InstanceFriend || t == InstanceFriendPlus
}

// Tag classifies an event into one of the fixed forum categories
type Tag string

const (
	TagTourism    Tag = "tourism"
	TagGame       Tag = "game"
	TagRelax      Tag = "relax"
	TagPhotoshoot Tag = "photoshoot"
	TagEvent      Tag = "event"
	TagOther      Tag = "other"
)

// ParticipantStatus represents a user's recorded intent toward an invitation
type ParticipantStatus string

const (
	ParticipantJoined     ParticipantStatus = "joined"
	ParticipantInterested ParticipantStatus = "interested"
)

// Invitation is a recruiting post for a scheduled gathering. Its primary key
// is the Discord ID of the announcement message that renders it.
type Invitation struct {
	ID       string `gorm:"primaryKey;size:32"`
	ThreadID string `gorm:"size:32;uniqueIndex;not null"`
	HostID   string `gorm:"size:32;not null;index"`
	HostName string `gorm:"size:100;not null"`

	EventName   string `gorm:"size:200;not null"`
	StartTime   time.Time
	EndTime     time.Time `gorm:"index"`
	WorldName   string    `gorm:"size:200;not null"`
	WorldLink   *string   `gorm:"size:500"`
	Tag         Tag       `gorm:"size:32;not null"`
	Description string    `gorm:"size:2000;not null"`

	InstanceType    InstanceType `gorm:"size:16;not null"`
	VRChatProfile   *string      `gorm:"size:500"`
	MaxParticipants int          `gorm:"not null"`

	Status Status `gorm:"size:16;not null;default:recruiting;index"`

	// Staff fields, only meaningful for group instances. StaffID and
	// StaffName are set together by a single conditional update.
	StaffID        *string `gorm:"size:32"`
	StaffName      *string `gorm:"size:100"`
	InstanceLink   *string `gorm:"size:500"`
	StaffMessageID *string `gorm:"size:32"`

	RemindedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Invitation) TableName() string {
	return "invitations"
}

// IsFull reports whether the joined count has reached capacity.
func (inv *Invitation) IsFull(joined int) bool {
	return joined >= inv.MaxParticipants
}

// Participant is one user's intent (joined or interested) toward one
// invitation. A user has at most one row per invitation.
type Participant struct {
	ID           uint              `gorm:"primaryKey"`
	InvitationID string            `gorm:"size:32;not null;uniqueIndex:idx_participant_invitation_user"`
	UserID       string            `gorm:"size:32;not null;uniqueIndex:idx_participant_invitation_user"`
	UserName     string            `gorm:"size:100;not null"`
	Status       ParticipantStatus `gorm:"size:16;not null"`
	CreatedAt    time.Time
}

// TableName overrides the default table name
func (Participant) TableName() string {
	return "participants"
}

// Counts holds independent participant tallies for one invitation
type Counts struct {
	Joined     int
	Interested int
}
