package db

import "time"

// ===========================
// USER MODELS
// ===========================

// AccessStatus values for a user account
const (
	AccessPending = "pending"
	AccessActive  = "active"
)

// FuncaoAdmin is the literal admin marker stored on a user's funcao field.
// It short-circuits every permission check.
const FuncaoAdmin = "admin"

// User represents a portal user profile. ID matches the identity provider
// subject. Funcao is the legacy role string ("admin", a manager name, or a
// cargo display name); CargoID is the stable join added later - legacy rows
// may still carry only the name.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`

	Funcao  string `json:"funcao"`
	CargoID string `json:"cargo_id,omitempty"`

	AccessStatus       string   `json:"access_status"`
	AssignedProjectIDs []string `json:"assigned_project_ids"`
	FavoriteProjectIDs []string `json:"favorite_project_ids,omitempty"`

	// Push delivery
	FCMToken string `json:"fcm_token,omitempty"`

	// Optimistic concurrency
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin marker.
func (u *User) IsAdmin() bool {
	return u.Funcao == FuncaoAdmin
}

// IsPending reports whether the account still awaits approval.
func (u *User) IsPending() bool {
	return u.AccessStatus == AccessPending
}

// ===========================
// CARGO (ROLE) MODELS
// ===========================

// Cargo kinds. Cosmetic only - no permission logic keys off them.
const (
	CargoKindAdmin        = "admin"
	CargoKindCollaborator = "collaborator"
)

// Cargo is a named, admin-defined bundle of capability flags and project
// scoping. ID is immutable; Name is a display label and may be renamed
// freely without breaking the user join.
type Cargo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`

	// ManagerTier replaces the legacy name-substring inference. It is set
	// intentionally (or computed once from the legacy name at migration).
	ManagerTier bool `json:"manager_tier"`

	ScopedProjectIDs []string `json:"scoped_project_ids"`

	CanManageUsers       bool `json:"can_manage_users"`
	CanManagePermissions bool `json:"can_manage_permissions"`
	CanCreateCargos      bool `json:"can_create_cargos"`
	CanCreateProjects    bool `json:"can_create_projects"`
	CanEditProjectCards  bool `json:"can_edit_project_cards"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ===========================
// PROJECT MODELS
// ===========================

// Project represents a portal project with its built-in links, extra cards
// and explicit view members.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	FormsURL      string `json:"forms_url,omitempty"`
	SharePointURL string `json:"sharepoint_url,omitempty"`

	ExtraCards []Card   `json:"extra_cards"`
	MemberIDs  []string `json:"member_ids"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMember reports whether userID is in the project's explicit member list.
func (p *Project) HasMember(userID string) bool {
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Card types. The type determines which sub-view handles the card and
// whether it needs file or form capability.
const (
	CardTypeLink         = "link"
	CardTypeDocuments    = "documents"
	CardTypeReports      = "reports"
	CardTypeFiles        = "files"
	CardTypeSpreadsheets = "spreadsheets"
	CardTypeForms        = "forms"
	CardTypeApprovals    = "approvals"
	CardTypeInventory    = "inventory"
	CardTypeFinancial    = "financial"
	CardTypeHR           = "hr"
)

// Card is a project's extra sub-resource. ID is the stable identity used for
// storage paths and form responses; Name is display-only and renameable.
type Card struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Type        string `json:"type"`

	// type=forms payload
	FormFields []FormField `json:"form_fields,omitempty"`

	// Notification config
	EmailNotifications bool     `json:"email_notifications"`
	NotificationEmails []string `json:"notification_emails,omitempty"`
}

// NeedsStorage reports whether the card type is backed by object storage.
func (c *Card) NeedsStorage() bool {
	switch c.Type {
	case CardTypeDocuments, CardTypeReports, CardTypeFiles, CardTypeSpreadsheets:
		return true
	}
	return false
}

// ===========================
// FORM MODELS
// ===========================

// FormField kinds supported by the dynamic form builder
const (
	FieldKindText     = "text"
	FieldKindNumber   = "number"
	FieldKindDate     = "date"
	FieldKindSelect   = "select"
	FieldKindCheckbox = "checkbox"
)

// FormField describes a single field of a card's custom form
type FormField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"` // for kind=select
}

// FormResponse is a submitted response for a forms card, keyed by card ID
// (not card name, so renaming the card keeps responses attached).
type FormResponse struct {
	ID          string            `json:"id"`
	CardID      string            `json:"card_id"`
	ProjectID   string            `json:"project_id"`
	SubmittedBy string            `json:"submitted_by"`
	Values      map[string]string `json:"values"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ===========================
// NOTIFICATION MODELS
// ===========================

// Notification kinds
const (
	NotificationAccessApproved = "access_approved"
	NotificationProjectShared  = "project_shared"
	NotificationFormResponse   = "form_response"
	NotificationCardUpdated    = "card_updated"
)

// Notification is a per-user notification document. The worker delivers
// undelivered rows via push and the e-mail gateway.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind"`
	Channels  []string  `json:"channels,omitempty"` // "push", "email"
	Emails    []string  `json:"emails,omitempty"`   // explicit e-mail recipients (card notification lists)
	Read      bool      `json:"read"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}

// ===========================
// STORAGE OPERATION MODELS
// ===========================

// Storage operation kinds and statuses
const (
	StorageOpRename = "rename"
	StorageOpDelete = "delete"

	StorageOpPending = "pending"
	StorageOpRunning = "running"
	StorageOpDone    = "done"
	StorageOpFailed  = "failed"
)

// StorageOp is the persisted cursor of a multi-step folder operation
// (rename = copy every object then delete the original, delete = remove
// every object under the prefix). The external store has no native move, so
// a crash mid-way leaves a mixed state; the cursor lets the operation be
// resumed instead of retried blindly.
type StorageOp struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	SourcePrefix string    `json:"source_prefix"`
	DestPrefix   string    `json:"dest_prefix,omitempty"`
	Cursor       string    `json:"cursor"` // last object path fully processed
	Copied       int       `json:"copied"`
	Deleted      int       `json:"deleted"`
	Failed       int       `json:"failed"`
	Status       string    `json:"status"`
	StartedBy    string    `json:"started_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
