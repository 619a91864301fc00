package recordstore

import (
	"fmt"
	"time"

	"github.com/histomed/histomed/internal/model"
)

// Demo seed identifiers.
const (
	SeedDermUserID    = "u_derm1"
	SeedPatientUserID = "u_pat1"
	SeedPatientID     = "p101"
)

// needsSeed reports whether the document has neither users nor patients.
func needsSeed(d *Document) bool {
	return len(d.Users) == 0 && len(d.Patients) == 0
}

// seedDemo inserts one DERM user and one linked patient with its portal login.
func seedDemo(d *Document, hash func(string) (string, error), now time.Time) error {
	if hash == nil {
		hash = func(s string) (string, error) { return s, nil }
	}
	dermPw, err := hash("derm123")
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	patPw, err := hash("123456")
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	d.Users = append(d.Users,
		model.User{
			ID: SeedDermUserID, Role: model.RoleDerm, Name: "Dra. Sofía López",
			Email: "sofia@histomed.gt", Password: dermPw, CreatedAt: now,
		},
		model.User{
			ID: SeedPatientUserID, Role: model.RolePatient, Name: "Juan Pérez",
			Email: "juan@paciente.com", Password: patPw, PatientID: SeedPatientID, CreatedAt: now,
		},
	)
	d.Patients = append(d.Patients, model.Patient{
		ID:        SeedPatientID,
		Name:      "Juan Pérez",
		DPI:       "1234567890101",
		Phone:     "58701234",
		CreatedAt: now,
	})
	return nil
}
