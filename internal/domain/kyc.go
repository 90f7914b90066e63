package domain

import "time"

// KYCStatus is the review classification of a KYC session. Empty means not submitted.
type KYCStatus string

const (
	KYCStatusDraft       KYCStatus = "draft"
	KYCStatusUnderReview KYCStatus = "under_review"
	KYCStatusApproved    KYCStatus = "approved"
	KYCStatusRejected    KYCStatus = "rejected"
)

// Terminal reports whether no further review transition is expected.
func (s KYCStatus) Terminal() bool {
	return s == KYCStatusApproved || s == KYCStatusRejected
}

type DocType string

const (
	DocTypePassport      DocType = "passport"
	DocTypeIDCard        DocType = "id_card"
	DocTypeDriverLicense DocType = "driver_license"
)

const (
	DefaultDocType = DocTypeIDCard
	DefaultCountry = "Bangladesh"
)

// Valid reports whether t is one of the known document types.
func (t DocType) Valid() bool {
	switch t {
	case DocTypePassport, DocTypeIDCard, DocTypeDriverLicense:
		return true
	}
	return false
}

// Wizard steps.
const (
	StepIntro    = 1
	StepPersonal = 2
	StepTips     = 3
	StepDocument = 4
	StepIDUpload = 5
	StepSelfie   = 6
	StepReview   = 7
	StepStatus   = 8
)

// KYCSession is the server-held record of a user's verification progress.
// The gateway only mirrors it; Step and Status are the authoritative progress signals.
type KYCSession struct {
	Step     int          `json:"step"`
	Status   KYCStatus    `json:"status,omitempty"`
	Profile  *KYCProfile  `json:"profile,omitempty"`
	Document *KYCDocument `json:"document,omitempty"`
	Selfie   *KYCSelfie   `json:"selfie,omitempty"`
	DocType  DocType      `json:"doc_type,omitempty"` // legacy top-level selection
}

type KYCProfile struct {
	FullName string `json:"full_name,omitempty"`
	DOB      string `json:"dob,omitempty"` // MM/DD/YYYY
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	Address  string `json:"address,omitempty"`
}

type KYCDocument struct {
	Country  string  `json:"country,omitempty"`
	Type     DocType `json:"type,omitempty"`
	IDNumber string  `json:"id_number,omitempty"`
	FrontURL string  `json:"front_url,omitempty"`
	BackURL  string  `json:"back_url,omitempty"`
}

type KYCSelfie struct {
	URL string `json:"url,omitempty"`
}

// Previews returns the uploaded-image URL per upload kind; missing slots are empty.
func (s *KYCSession) Previews() Previews {
	p := Previews{}
	if s == nil {
		return p
	}
	if s.Document != nil {
		p[UploadIDFront] = s.Document.FrontURL
		p[UploadIDBack] = s.Document.BackURL
	}
	if s.Selfie != nil {
		p[UploadSelfie] = s.Selfie.URL
	}
	return p
}

// Country returns the saved profile country or the default.
func (s *KYCSession) Country() string {
	if s != nil && s.Profile != nil && s.Profile.Country != "" {
		return s.Profile.Country
	}
	return DefaultCountry
}

// SavedDocType returns the document type on record, or the default.
func (s *KYCSession) SavedDocType() DocType {
	if s != nil {
		if s.Document != nil && s.Document.Type.Valid() {
			return s.Document.Type
		}
		if s.DocType.Valid() {
			return s.DocType
		}
	}
	return DefaultDocType
}

// SessionEnvelope is the upstream response shape for every KYC call.
type SessionEnvelope struct {
	Session *KYCSession `json:"session"`
	Message string      `json:"message,omitempty"`
}

// SaveSessionRequest is the body of POST session.
type SaveSessionRequest struct {
	Country string  `json:"country,omitempty"`
	DocType DocType `json:"doc_type,omitempty"`
	Step    int     `json:"step,omitempty"`
}

// ProfileInput is the personal-details form.
type ProfileInput struct {
	FullName string `json:"full_name" validate:"required"`
	DOB      string `json:"dob" validate:"required,dob"`
	Country  string `json:"country"`
	City     string `json:"city" validate:"required"`
	Address  string `json:"address" validate:"required"`
}

// DocTypeRequest is the body of POST doctype.
type DocTypeRequest struct {
	Type    DocType `json:"type"`
	Step    int     `json:"step"`
	Country string  `json:"country"`
}

// Visit is the client-local wizard state for one page load. It is never sent upstream.
type Visit struct {
	VisitID           string    `json:"id" dynamodbav:"visit_id"`
	UserID            string    `json:"user_id" dynamodbav:"user_id"`
	IntroAcknowledged bool      `json:"intro_acknowledged" dynamodbav:"intro_acknowledged"`
	SelectedDocType   DocType   `json:"selected_doc_type" dynamodbav:"selected_doc_type"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt         int64     `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Expired reports whether the visit's TTL has passed at now.
func (v *Visit) Expired(now time.Time) bool {
	return v.ExpiresAt > 0 && now.Unix() >= v.ExpiresAt
}

// VisitUpdate is a partial change to a visit; nil fields are left as they are.
type VisitUpdate struct {
	IntroAcknowledged *bool
	SelectedDocType   *DocType
}

// Apply writes the set fields of u onto v.
func (u VisitUpdate) Apply(v *Visit) {
	if u.IntroAcknowledged != nil {
		v.IntroAcknowledged = *u.IntroAcknowledged
	}
	if u.SelectedDocType != nil {
		v.SelectedDocType = *u.SelectedDocType
	}
}
