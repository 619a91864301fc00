package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histomed/histomed/internal/model"
)

// memBackend is an in-memory Backend whose writes can be made to fail.
type memBackend struct {
	data     []byte
	saves    int
	failSave bool
}

func (m *memBackend) Name() string { return "memory" }
func (m *memBackend) Load(context.Context) ([]byte, error) {
	return m.data, nil
}
func (m *memBackend) Save(_ context.Context, data []byte) error {
	if m.failSave {
		return errors.New("disk full")
	}
	m.saves++
	m.data = append([]byte(nil), data...)
	return nil
}
func (m *memBackend) Close() error { return nil }

func fixedNow() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

func openSeeded(t *testing.T, b Backend) *Store {
	t.Helper()
	s, err := Open(context.Background(), b, Options{SeedDemo: true, Logger: zerolog.Nop(), Now: fixedNow})
	require.NoError(t, err)
	return s
}

func TestOpen_SeedsEmptyStore(t *testing.T) {
	b := &memBackend{}
	s := openSeeded(t, b)

	require.NoError(t, s.View(func(d *Document) error {
		require.Len(t, d.Users, 2)
		require.Len(t, d.Patients, 1)
		assert.Empty(t, d.Visits)
		assert.Empty(t, d.Prescriptions)

		p := d.Patient(SeedPatientID)
		require.NotNil(t, p)
		assert.Equal(t, "Juan Pérez", p.Name)
		assert.Equal(t, "1234567890101", p.DPI)
		assert.Equal(t, "58701234", p.Phone)

		u := d.UserByEmail("JUAN@paciente.com ", model.RolePatient)
		require.NotNil(t, u)
		assert.Equal(t, SeedPatientID, u.PatientID)
		assert.Nil(t, d.UserByEmail("juan@paciente.com", model.RoleDerm))
		return nil
	}))
	assert.Equal(t, 1, b.saves, "seed must be persisted")
	assert.Contains(t, string(b.data), `"visits": []`)
}

func TestOpen_SeedHashesPasswords(t *testing.T) {
	b := &memBackend{}
	_, err := Open(context.Background(), b, Options{
		SeedDemo:     true,
		HashPassword: func(s string) (string, error) { return "h:" + s, nil },
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Contains(t, string(b.data), `"password": "h:derm123"`)
	assert.NotContains(t, string(b.data), `"password": "derm123"`)
}

func TestOpen_NoSeedWhenDisabledOrPopulated(t *testing.T) {
	b := &memBackend{}
	s, err := Open(context.Background(), b, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, s.View(func(d *Document) error {
		assert.Empty(t, d.Users)
		return nil
	}))

	b = &memBackend{data: []byte(`{"patients":[{"id":"p1","name":"Ana"}]}`)}
	s = openSeeded(t, b)
	require.NoError(t, s.View(func(d *Document) error {
		assert.Empty(t, d.Users, "a store with patients is not seeded")
		assert.Len(t, d.Patients, 1)
		assert.NotNil(t, d.Visits, "missing keys become empty tables")
		return nil
	}))
}

func TestOpen_AcceptsLegacyDocument(t *testing.T) {
	legacy := `{
	  "users": [{"id":"u1","role":"DERM","name":"D","email":"d@x","password":"pw","createdAt":"2024-01-01T00:00:00.000Z"}],
	  "patients": [{"id":"p1","name":"Ana","dpi":"","phone":"","createdAt":"2024-01-01T00:00:00.000Z"}],
	  "visits": [{"id":"v1","patientId":"p1","reason":"Acné","diagnosis":"","notes":"","recommendations":"","createdAt":"2024-01-02T00:00:00.000Z"}],
	  "prescriptions": [{"id":"r1","patientId":"p1","visitId":null,"items":[{"tipo":"medicamento","med":"A","dosis":"","frecuencia":""}],"createdAt":"2024-01-02T01:00:00.000Z"}]
	}`
	s := openSeeded(t, &memBackend{data: []byte(legacy)})
	require.NoError(t, s.View(func(d *Document) error {
		rxs := d.PrescriptionsFor("p1")
		require.Len(t, rxs, 1)
		assert.Equal(t, "", rxs[0].VisitID)
		assert.Equal(t, 2024, d.Visits[0].CreatedAt.Year())
		return nil
	}))
}

func TestOpen_KeepsItemsVerbatim(t *testing.T) {
	raw := `{"prescriptions":[{"id":"r1","patientId":"p1","items":[{"med":"A","dosis":100,"nota":"con comida"},"aplicar de noche"],"createdAt":"2024-01-02T01:00:00Z"}]}`
	s := openSeeded(t, &memBackend{data: []byte(raw)})

	snap, err := s.Snapshot()
	require.NoError(t, err)
	var doc struct {
		Prescriptions []struct {
			Items []json.RawMessage `json:"items"`
		} `json:"prescriptions"`
	}
	require.NoError(t, json.Unmarshal(snap, &doc))
	require.Len(t, doc.Prescriptions, 1)
	require.Len(t, doc.Prescriptions[0].Items, 2)
	assert.JSONEq(t, `{"med":"A","dosis":100,"nota":"con comida"}`, string(doc.Prescriptions[0].Items[0]))
	assert.JSONEq(t, `"aplicar de noche"`, string(doc.Prescriptions[0].Items[1]))
}

func TestOpen_RejectsInvalidDocument(t *testing.T) {
	tests := map[string]string{
		"bad role":        `{"users":[{"id":"u1","role":"ADMIN","email":"a","password":"p"}]}`,
		"visit no reason": `{"visits":[{"id":"v1","patientId":"p1","createdAt":"2024-01-01T00:00:00Z"}]}`,
		"tables not list": `{"patients":{}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Open(context.Background(), &memBackend{data: []byte(raw)}, Options{Logger: zerolog.Nop()})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema validation")
		})
	}
}

func TestUpdate_FailedWriteLeavesMemoryUnchanged(t *testing.T) {
	b := &memBackend{}
	s := openSeeded(t, b)

	b.failSave = true
	err := s.Update(context.Background(), func(d *Document) error {
		d.Patients = d.Patients[:0]
		d.Users = d.Users[:0]
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	require.NoError(t, s.View(func(d *Document) error {
		assert.Len(t, d.Patients, 1)
		assert.Len(t, d.Users, 2)
		return nil
	}))
}

func TestUpdate_CallbackErrorAborts(t *testing.T) {
	b := &memBackend{}
	s := openSeeded(t, b)
	saves := b.saves

	sentinel := errors.New("nope")
	err := s.Update(context.Background(), func(d *Document) error {
		d.Patient(SeedPatientID).Name = "changed"
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, saves, b.saves)
	require.NoError(t, s.View(func(d *Document) error {
		assert.Equal(t, "Juan Pérez", d.Patient(SeedPatientID).Name)
		return nil
	}))
}

func TestClone_IsDeep(t *testing.T) {
	now := fixedNow()
	d := &Document{
		Patients:      []model.Patient{{ID: "p1", UpdatedAt: &now}},
		Prescriptions: []model.Prescription{{ID: "r1", Items: []model.PrescriptionItem{model.PrescriptionItem(`{"med":"A"}`)}}},
	}
	c := d.Clone()
	c.Prescriptions[0].Items[0][0] = 'X'
	c.Prescriptions[0].Items = append(c.Prescriptions[0].Items, model.PrescriptionItem(`{"med":"B"}`))
	*c.Patients[0].UpdatedAt = now.Add(time.Hour)

	require.Len(t, d.Prescriptions[0].Items, 1)
	assert.Equal(t, "A", d.Prescriptions[0].Items[0].Fields().Med)
	assert.Equal(t, now, *d.Patients[0].UpdatedAt)
	assert.NotNil(t, c.Users)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "db.json")
	b := NewFileBackend(path)

	data, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data, "missing file loads as empty")

	s := openSeeded(t, b)
	require.NoError(t, s.Update(context.Background(), func(d *Document) error {
		d.Visits = append(d.Visits, model.Visit{ID: "v1", PatientID: SeedPatientID, Reason: "Acné", CreatedAt: fixedNow()})
		return nil
	}))

	reopened := openSeeded(t, NewFileBackend(path))
	require.NoError(t, reopened.View(func(d *Document) error {
		require.Len(t, d.Visits, 1)
		assert.Equal(t, "Acné", d.Visits[0].Reason)
		return nil
	}))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestSnapshot(t *testing.T) {
	s := openSeeded(t, &memBackend{})
	data, err := s.Snapshot()
	require.NoError(t, err)
	require.NoError(t, ValidateDocument(data))
	assert.Equal(t, "memory", s.Driver())
}
