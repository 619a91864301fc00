package recordstore

import (
	"github.com/histomed/histomed/internal/model"
)

// Document is the whole persisted state. Missing keys decode as empty tables.
type Document struct {
	Users         []model.User         `json:"users"`
	Patients      []model.Patient      `json:"patients"`
	Visits        []model.Visit        `json:"visits"`
	Prescriptions []model.Prescription `json:"prescriptions"`
}

// normalize replaces nil tables so they encode as [] rather than null.
func (d *Document) normalize() {
	if d.Users == nil {
		d.Users = []model.User{}
	}
	if d.Patients == nil {
		d.Patients = []model.Patient{}
	}
	if d.Visits == nil {
		d.Visits = []model.Visit{}
	}
	if d.Prescriptions == nil {
		d.Prescriptions = []model.Prescription{}
	}
}

// Clone returns a deep copy. Mutations of the copy never reach d.
func (d *Document) Clone() *Document {
	out := &Document{
		Users:         append([]model.User(nil), d.Users...),
		Patients:      make([]model.Patient, len(d.Patients)),
		Visits:        append([]model.Visit(nil), d.Visits...),
		Prescriptions: make([]model.Prescription, len(d.Prescriptions)),
	}
	for i, p := range d.Patients {
		if p.UpdatedAt != nil {
			t := *p.UpdatedAt
			p.UpdatedAt = &t
		}
		out.Patients[i] = p
	}
	for i, rx := range d.Prescriptions {
		rx.Items = model.CloneItems(rx.Items)
		out.Prescriptions[i] = rx
	}
	out.normalize()
	return out
}

// Patient returns a pointer into the patients table, or nil.
func (d *Document) Patient(id string) *model.Patient {
	for i := range d.Patients {
		if d.Patients[i].ID == id {
			return &d.Patients[i]
		}
	}
	return nil
}

// User returns a pointer into the users table, or nil.
func (d *Document) User(id string) *model.User {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i]
		}
	}
	return nil
}

// UserByEmail matches case-insensitively, optionally restricted to a role.
func (d *Document) UserByEmail(email string, role model.Role) *model.User {
	for i := range d.Users {
		u := &d.Users[i]
		if role != "" && u.Role != role {
			continue
		}
		if u.EmailMatches(email) {
			return u
		}
	}
	return nil
}

func (d *Document) Visit(id string) *model.Visit {
	for i := range d.Visits {
		if d.Visits[i].ID == id {
			return &d.Visits[i]
		}
	}
	return nil
}

// VisitsFor returns copies of the patient's visits in insertion order.
func (d *Document) VisitsFor(patientID string) []model.Visit {
	out := []model.Visit{}
	for _, v := range d.Visits {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out
}

// PrescriptionsFor returns copies of the patient's prescriptions in insertion order.
func (d *Document) PrescriptionsFor(patientID string) []model.Prescription {
	out := []model.Prescription{}
	for _, rx := range d.Prescriptions {
		if rx.PatientID == patientID {
			rx.Items = model.CloneItems(rx.Items)
			out = append(out, rx)
		}
	}
	return out
}
