package models

import "time"

// UploadedFileRef is the settled reference to one uploaded file. It is
// produced by the upload pipeline and never mutated afterwards.
type UploadedFileRef struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	StorageKey string `json:"storageKey"`
	MimeType   string `json:"mimeType"`
}

// Tenant is the canonical server-side entity an enhancement session
// operates on.
type Tenant struct {
	ID          string                       `json:"id"`
	CompanyName string                       `json:"companyName"`
	Industry    string                       `json:"industry,omitempty"`
	Answers     map[string]string            `json:"answers,omitempty"`
	Attachments map[string][]UploadedFileRef `json:"attachments,omitempty"`
	CreatedAt   time.Time                    `json:"createdAt"`
	UpdatedAt   time.Time                    `json:"updatedAt"`
}

// TenantInvite is a pending invitation to join a tenant workspace.
type TenantInvite struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IntakeRequest is the structured payload a generation job starts from.
type IntakeRequest struct {
	CompanyName string      `json:"companyName"`
	Industry    string      `json:"industry,omitempty"`
	Tasks       []string    `json:"tasks,omitempty"`
	ServiceType ServiceType `json:"serviceType"`
	Notes       string      `json:"notes,omitempty"`
}
