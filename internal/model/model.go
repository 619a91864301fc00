// Package model holds the entities persisted in the record document.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Role names a principal's access level.
type Role string

const (
	RoleDerm    Role = "DERM"
	RolePatient Role = "PATIENT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDerm || r == RolePatient
}

// Prescription item kinds.
const (
	ItemMedication  = "medicamento"
	ItemInstruction = "indicacion"
)

// User is a login account. PATIENT users always carry PatientID.
type User struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	PatientID string    `json:"patientId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicUser is the API representation of a User. It never carries the password.
type PublicUser struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PatientID string    `json:"patientId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips the secret.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Role:      u.Role,
		Name:      u.Name,
		Email:     u.Email,
		PatientID: u.PatientID,
		CreatedAt: u.CreatedAt,
	}
}

// EmailMatches compares emails the way logins and collision checks do.
func (u *User) EmailMatches(email string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Email), strings.TrimSpace(email))
}

type Patient struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	DPI       string     `json:"dpi"`
	Phone     string     `json:"phone"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type Visit struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patientId"`
	Reason          string    `json:"reason"`
	Diagnosis       string    `json:"diagnosis"`
	Notes           string    `json:"notes"`
	Recommendations string    `json:"recommendations"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PrescriptionItem is one prescription line kept as the raw JSON the client
// sent. Keys beyond the four known ones and non-string values survive
// storage and are returned unchanged.
type PrescriptionItem json.RawMessage

// ItemFields is the decoded view of the known item keys.
type ItemFields struct {
	Tipo       string
	Med        string
	Dosis      string
	Frecuencia string
}

func (it PrescriptionItem) MarshalJSON() ([]byte, error) {
	if len(it) == 0 {
		return []byte("null"), nil
	}
	return it, nil
}

func (it *PrescriptionItem) UnmarshalJSON(data []byte) error {
	*it = append(PrescriptionItem(nil), data...)
	return nil
}

// Clone copies the underlying bytes.
func (it PrescriptionItem) Clone() PrescriptionItem {
	if it == nil {
		return nil
	}
	return append(PrescriptionItem(nil), it...)
}

// Fields decodes the known keys. Scalar values that are not strings are
// rendered as their JSON text; an item that is not an object yields the zero
// value.
func (it PrescriptionItem) Fields() ItemFields {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(it, &raw); err != nil {
		return ItemFields{}
	}
	return ItemFields{
		Tipo:       itemText(raw["tipo"]),
		Med:        itemText(raw["med"]),
		Dosis:      itemText(raw["dosis"]),
		Frecuencia: itemText(raw["frecuencia"]),
	}
}

func itemText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []PrescriptionItem) []PrescriptionItem {
	if items == nil {
		return nil
	}
	out := make([]PrescriptionItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

type Prescription struct {
	ID        string             `json:"id"`
	PatientID string             `json:"patientId"`
	VisitID   string             `json:"visitId,omitempty"`
	Items     []PrescriptionItem `json:"items"`
	CreatedAt time.Time          `json:"createdAt"`
}
