// Package models defines the client-side data structures for the Padosi
// society governance API. The backend owns the authoritative copies; these
// shapes mirror its JSON wire format.
package models

// Vote types for a complaint. The caller's own vote is either one of these
// or absent ("" — never voted or vote removed).
const (
	VoteSupport = "support"
	VoteOppose  = "oppose"
)

// Complaint statuses as the backend emits them. The client treats status as
// an opaque enumerated value; this set exists only for the open-complaint
// counter and display helpers.
const (
	StatusOpen         = "open"
	StatusAcknowledged = "acknowledged"
	StatusInProgress   = "in_progress"
	StatusEscalated    = "escalated"
	StatusResolved     = "resolved"
	StatusClosed       = "closed"
)

// Complaint is a grievance filed against the society or a resident.
// SupportCount/OpposeCount and UserVote are denormalized vote state;
// CommentsCount is server-authoritative and may exceed len(Comments)
// when the comment thread has not been loaded.
type Complaint struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	SupportCount   int       `json:"support_count"`
	OpposeCount    int       `json:"oppose_count"`
	UserVote       string    `json:"user_vote,omitempty"`
	IsAnonymous    bool      `json:"is_anonymous"`
	AccusedFlat    string    `json:"accused_flat,omitempty"`
	Complainant    *UserRef  `json:"complainant,omitempty"`
	Comments       []Comment `json:"comments,omitempty"`
	CommentsCount  int       `json:"comments_count"`
	ResolutionNote string    `json:"resolution_note,omitempty"`
	CreatedAt      string    `json:"created_at,omitempty"`
	UpdatedAt      string    `json:"updated_at,omitempty"`
}

// IsOpen reports whether the complaint is still actionable (not resolved
// or closed).
func (c *Complaint) IsOpen() bool {
	switch c.Status {
	case StatusOpen, StatusAcknowledged, StatusInProgress, StatusEscalated:
		return true
	}
	return false
}

// Comment is a discussion entry on a complaint.
type Comment struct {
	ID          int64    `json:"id"`
	ComplaintID int64    `json:"complaint_id"`
	CommentText string   `json:"comment_text"`
	IsAnonymous bool     `json:"is_anonymous"`
	IsOfficial  bool     `json:"is_official,omitempty"`
	User        *UserRef `json:"user,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// UserRef is the reduced user shape embedded in complaints and comments.
// Anonymous entries carry only a display name and wing.
type UserRef struct {
	ID          int64  `json:"id,omitempty"`
	DisplayName string `json:"display_name"`
	FlatNumber  string `json:"flat_number,omitempty"`
	Wing        string `json:"wing,omitempty"`
}

// Notification is a user-facing event record.
type Notification struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	Message            string `json:"message"`
	NotificationType   string `json:"notification_type"`
	RelatedComplaintID *int64 `json:"related_complaint_id,omitempty"`
	ActionURL          string `json:"action_url,omitempty"`
	IsRead             bool   `json:"is_read"`
	ReadAt             string `json:"read_at,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// User is the authenticated resident's profile.
type User struct {
	ID         int64    `json:"id"`
	Email      string   `json:"email,omitempty"`
	FullName   string   `json:"full_name"`
	FlatNumber string   `json:"flat_number"`
	Wing       string   `json:"wing,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	AvatarURL  string   `json:"avatar_url,omitempty"`
	SocietyID  int64    `json:"society_id"`
	Society    *Society `json:"society,omitempty"`
	KarmaScore int      `json:"karma_score"`
	Roles      []string `json:"roles"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

// HasRole reports whether the user carries the named role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Society is the housing society a user belongs to.
type Society struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

// Pagination mirrors the backend's pagination object. It is always replaced
// wholesale by the server's last response, never computed locally.
type Pagination struct {
	Total   int `json:"total"`
	Pages   int `json:"pages"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// LookupOption is one entry of a reference table (categories, statuses,
// priorities).
type LookupOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LoginRequest is the credentials payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the signup payload for POST /auth/register.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	FlatNumber string `json:"flat_number"`
	Wing       string `json:"wing,omitempty"`
	SocietyID  int64  `json:"society_id"`
}

// AuthResponse is the data payload returned by login and register.
type AuthResponse struct {
	User         *User    `json:"user"`
	Society      *Society `json:"society,omitempty"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

// ComplaintDraft is the payload for creating or updating a complaint.
type ComplaintDraft struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Priority    string `json:"priority,omitempty"`
	AccusedFlat string `json:"accused_flat,omitempty"`
	IsAnonymous bool   `json:"is_anonymous,omitempty"`
}

// VoteCounts is the data payload of a vote or vote-removal response.
type VoteCounts struct {
	VoteType     string `json:"vote_type,omitempty"`
	SupportCount int    `json:"support_count"`
	OpposeCount  int    `json:"oppose_count"`
}
