package models

import (
	"time"
)

// Viewer is the identity a request is evaluated for.
// ActingAsID is set when a coach views the app as one of their clients.
type Viewer struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	ActingAsID string `json:"acting_as_id,omitempty"`
}

const (
	RoleAdmin        = "admin"
	RoleCoach        = "coach"
	RolePractitioner = "practitioner"
	RoleClient       = "client"
)

// CanActAs reports whether the viewer's role may view the app as a client.
func (v Viewer) CanActAs() bool {
	switch v.Role {
	case RoleAdmin, RoleCoach, RolePractitioner:
		return true
	}
	return false
}

// Meta holds the platform-managed fields present on every record.
type Meta struct {
	ID          string     `json:"id"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedDate *time.Time `json:"created_date,omitempty"`
	UpdatedDate *time.Time `json:"updated_date,omitempty"`
}

// Session is a coaching session. Status is the persisted free-text field;
// the lifecycle package derives the live status from the other fields.
type Session struct {
	Meta
	ClientID             string `json:"client_id"`
	Title                string `json:"title"`
	DateTime             string `json:"date_time,omitempty"`
	Duration             *int   `json:"duration,omitempty"` // minutes, nil means 30
	Status               string `json:"status,omitempty"`
	GoogleCalendarStatus string `json:"google_calendar_status,omitempty"`
	ClientResponseStatus string `json:"client_response_status,omitempty"`
	MeetLink             string `json:"meet_link,omitempty"`
	MeetJoinLink         string `json:"meet_join_link,omitempty"`
	RecordingFileID      string `json:"recording_file_id,omitempty"`
	TranscriptDocID      string `json:"transcript_doc_id,omitempty"`
	GeminiNotesDocID     string `json:"gemini_notes_doc_id,omitempty"`
	PreSessionNotes      string `json:"preSessionNotes,omitempty"`
	Transcript           string `json:"transcript,omitempty"`
	TranscriptFileURL    string `json:"transcript_file_url,omitempty"`
}

// File is an uploaded document. At most one of the Linked* fields is set.
type File struct {
	Meta
	FileName        string     `json:"fileName"`
	FileURL         string     `json:"fileUrl"`
	FileType        string     `json:"fileType,omitempty"`
	FileSize        int64      `json:"fileSize,omitempty"`
	Description     string     `json:"description,omitempty"`
	IsPrivate       bool       `json:"isPrivate"`
	SharedWithRoles StringList `json:"sharedWithRoles"`
	SharedWithUsers StringList `json:"sharedWithUsers"`
	LinkedClient    string     `json:"linkedClient,omitempty"`
	LinkedSession   string     `json:"linkedSession,omitempty"`
	LinkedJourney   string     `json:"linkedJourney,omitempty"`
}

func (f File) Owner() string         { return f.CreatedBy }
func (f File) Private() bool         { return f.IsPrivate }
func (f File) SharedRoles() []string { return f.SharedWithRoles }
func (f File) SharedUsers() []string { return f.SharedWithUsers }

// LinkCount returns how many of the linkage fields are set.
func (f File) LinkCount() int {
	n := 0
	for _, v := range []string{f.LinkedClient, f.LinkedSession, f.LinkedJourney} {
		if v != "" {
			n++
		}
	}
	return n
}

type Note struct {
	Meta
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	IsPrivate       bool       `json:"isPrivate"`
	SharedWithRoles StringList `json:"sharedWithRoles"`
	SharedWithUsers StringList `json:"sharedWithUsers"`
	LinkedClient    string     `json:"linkedClient,omitempty"`
	LinkedSession   string     `json:"linkedSession,omitempty"`
}

func (n Note) Owner() string         { return n.CreatedBy }
func (n Note) Private() bool         { return n.IsPrivate }
func (n Note) SharedRoles() []string { return n.SharedWithRoles }
func (n Note) SharedUsers() []string { return n.SharedWithUsers }

// MatchedSection ties a transcript excerpt to a knowledge-base section.
type MatchedSection struct {
	TranscriptExcerpt   string `json:"transcriptExcerpt"`
	KBSection           string `json:"kbSection,omitempty"`
	MatchReason         string `json:"matchReason,omitempty"`
	TranscriptTimestamp string `json:"transcriptTimestamp,omitempty"`
	Speaker             string `json:"speaker,omitempty"`
	MatchType           string `json:"matchType,omitempty"`
}

// AppliedReference is produced by the remote session analysis.
type AppliedReference struct {
	Meta
	SessionID       string      `json:"session_id"`
	KnowledgeBaseID string      `json:"knowledge_base_id"`
	RelevanceScore  float64     `json:"relevanceScore"`
	MatchType       string      `json:"matchType"`
	MatchedSections SectionList `json:"matchedSections"`
}

type Action struct {
	Meta
	SessionID           string `json:"session_id,omitempty"`
	ClientID            string `json:"client_id,omitempty"`
	Title               string `json:"title"`
	Description         string `json:"description,omitempty"`
	ActionType          string `json:"actionType"`
	Priority            string `json:"priority"`
	IsApplied           bool   `json:"isApplied"`
	IsDismissed         bool   `json:"isDismissed"`
	RequiresApproval    bool   `json:"requiresApproval"`
	ApprovalStatus      string `json:"approvalStatus,omitempty"`
	ApprovalRequestedBy string `json:"approvalRequestedBy,omitempty"`
	ApprovedBy          string `json:"approvedBy,omitempty"`
	DueDate             string `json:"dueDate,omitempty"`
}

type Client struct {
	Meta
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	CoachEmail string `json:"coach_email,omitempty"`
}

type KnowledgeBaseArticle struct {
	Meta
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Content  string `json:"content,omitempty"`
}
