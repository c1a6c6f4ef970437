package portal

import "time"

// Issue statuses as reported by the portal API.
const (
	StatusPending     = "Pending"
	StatusInProgress  = "In Progress"
	StatusSolved      = "Solved"
	StatusDefected    = "Defected"
	StatusDuplicate   = "Duplicate"
	StatusUnnecessary = "Unnecessary"
)

// User is a portal account, student or official.
type User struct {
	ID              int      `json:"id"`
	FullName        string   `json:"full_name"`
	Email           string   `json:"email"`
	Role            string   `json:"role"`
	ProfilePic      *string  `json:"profile_pic,omitempty"`
	EnrollmentNo    *string  `json:"enrollment_no,omitempty"`
	RegistrationNo  *string  `json:"registration_no,omitempty"`
	Semester        *string  `json:"semester,omitempty"`
	Hostel          *string  `json:"hostel,omitempty"`
	RequestedHostel *string  `json:"requested_hostel,omitempty"`
	Block           *string  `json:"block,omitempty"`
	RoomNo          *string  `json:"room_no,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	Department      *string  `json:"department,omitempty"`
	CreditScore     *float64 `json:"credit_score,omitempty"`
}

// Owner is the nested owner object some issue payloads carry instead
// of a flat owner_name.
type Owner struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
}

// Comment is a remark on an issue.
type Comment struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name"`
}

// Issue is a full maintenance ticket as returned by the API.
// ImageData can be a multi-megabyte base64 data URL, which is why the
// persistent cache stores LiteIssue instead.
type Issue struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category"`
	SubLocation      string    `json:"sub_location"`
	SpecificLocation string    `json:"specific_location"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
	ImageData        *string   `json:"image_data"`
	CreatedAt        time.Time `json:"created_at"`
	OwnerID          int       `json:"owner_id,omitempty"`
	OwnerName        string    `json:"owner_name,omitempty"`
	Owner            *Owner    `json:"owner,omitempty"`
	Rating           *int      `json:"rating"`
	Review           *string   `json:"review"`
	Comments         []Comment `json:"comments,omitempty"`
	OwnerCreditScore *float64  `json:"owner_credit_score,omitempty"`
}

// IssueCreate is the body for filing a new issue.
type IssueCreate struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	SubLocation      string  `json:"sub_location"`
	SpecificLocation string  `json:"specific_location"`
	Priority         string  `json:"priority"`
	ImageData        *string `json:"image_data,omitempty"`
}

// UserUpdate carries profile edits; zero fields are omitted.
type UserUpdate struct {
	FullName   *string `json:"full_name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Hostel     *string `json:"hostel,omitempty"`
	Block      *string `json:"block,omitempty"`
	RoomNo     *string `json:"room_no,omitempty"`
	Semester   *string `json:"semester,omitempty"`
	ProfilePic *string `json:"profile_pic,omitempty"`
}

// UserRegister is the body for account creation.
type UserRegister struct {
	FullName       string  `json:"full_name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Role           string  `json:"role"`
	EnrollmentNo   *string `json:"enrollment_no,omitempty"`
	RegistrationNo *string `json:"registration_no,omitempty"`
	Hostel         *string `json:"hostel,omitempty"`
	Block          *string `json:"block,omitempty"`
	RoomNo         *string `json:"room_no,omitempty"`
	Semester       *string `json:"semester,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Department     *string `json:"department,omitempty"`
}

// DashboardStats is the /stats summary.
type DashboardStats struct {
	TotalIssues int `json:"total_issues"`
	Pending     int `json:"pending"`
	Resolved    int `json:"resolved"`
	MyIssues    int `json:"my_issues"`
}

// MessAverages holds the per-criterion mess rating means.
type MessAverages struct {
	Hygiene float64 `json:"hygiene"`
	Taste   float64 `json:"taste"`
	Quality float64 `json:"quality"`
	Overall float64 `json:"overall"`
}

// MessReview is one student voice in the mess analytics feed.
type MessReview struct {
	Rating     float64 `json:"rating"`
	Review     *string `json:"review"`
	Suggestion *string `json:"suggestion"`
	Image      *string `json:"image"`
	Date       string  `json:"date"`
}

// MessAnalytics is the /mess/analytics aggregate.
type MessAnalytics struct {
	Avg        MessAverages `json:"avg"`
	Sentiment  string       `json:"sentiment"`
	ActionItem string       `json:"action_item"`
	Total      int          `json:"total"`
	Reviews    []MessReview `json:"reviews"`
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
