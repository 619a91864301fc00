package patient

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/histomed/histomed/internal/model"
	"github.com/histomed/histomed/internal/platform/apperr"
	"github.com/histomed/histomed/internal/platform/auth"
	"github.com/histomed/histomed/internal/platform/events"
	"github.com/histomed/histomed/internal/platform/recordstore"
)

type recordingSink struct {
	events []events.Event
}

func (r *recordingSink) Emit(_ context.Context, ev events.Event) {
	r.events = append(r.events, ev)
}

func plainHash(s string) (string, error) { return "plain:" + s, nil }

func newTestStore(t *testing.T) *recordstore.Store {
	t.Helper()
	store, err := recordstore.Open(context.Background(),
		recordstore.NewFileBackend(filepath.Join(t.TempDir(), "db.json")),
		recordstore.Options{SeedDemo: true, HashPassword: plainHash, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func newTestService(t *testing.T) (*Service, *recordstore.Store, *recordingSink) {
	t.Helper()
	store := newTestStore(t)
	sink := &recordingSink{}
	svc := NewService(NewStoreRepository(store), Config{HashPassword: plainHash, Events: sink})
	return svc, store, sink
}

func TestService_CreatePatient(t *testing.T) {
	svc, store, sink := newTestService(t)
	ctx := context.Background()

	res, err := svc.CreatePatient(ctx, CreateRequest{Name: "  Ana Gómez ", DPI: "2987654320101", Phone: "55550000"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Name != "Ana Gómez" {
		t.Errorf("expected trimmed name, got %q", res.Name)
	}
	if res.DPI != "2987654320101" || res.Phone != "55550000" {
		t.Errorf("dpi/phone must be stored verbatim, got %q %q", res.DPI, res.Phone)
	}
	if res.Login.Email != "ana.gomez.0101@paciente.histomed.gt" {
		t.Errorf("unexpected email %q", res.Login.Email)
	}
	if len(res.Login.Password) != auth.TempPasswordLength {
		t.Errorf("expected 10-char password, got %q", res.Login.Password)
	}

	store.View(func(d *recordstore.Document) error {
		u := d.UserByEmail(res.Login.Email, model.RolePatient)
		if u == nil {
			t.Fatal("expected linked PATIENT user")
		}
		if u.PatientID != res.ID {
			t.Errorf("expected user linked to %s, got %s", res.ID, u.PatientID)
		}
		if u.Password != "plain:"+res.Login.Password {
			t.Error("expected hashed password to be stored")
		}
		return nil
	})

	if len(sink.events) != 1 || sink.events[0].Type != events.PatientCreated {
		t.Errorf("expected patient.created event, got %+v", sink.events)
	}
}

func TestService_CreatePatient_DPIStoredExactly(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, dpi := range []string{"0001234567890", " 12 34 ", "", "abc"} {
		res, err := svc.CreatePatient(context.Background(), CreateRequest{Name: "Paciente", DPI: dpi})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := svc.GetPatient(context.Background(), res.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.DPI != dpi {
			t.Errorf("expected DPI %q, got %q", dpi, got.DPI)
		}
	}
}

func TestService_CreatePatient_RequiresName(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, name := range []string{"", "   "} {
		_, err := svc.CreatePatient(context.Background(), CreateRequest{Name: name})
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("expected validation error for %q, got %v", name, err)
		}
	}
}

func TestService_CreatePatient_UniqueEmails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for _, name := range []string{"José Núñez", "Jose Nunez", "JOSÉ  NÚÑEZ"} {
		res, err := svc.CreatePatient(ctx, CreateRequest{Name: name, DPI: "1111111110101"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[strings.ToLower(res.Login.Email)] {
			t.Fatalf("duplicate email %q", res.Login.Email)
		}
		seen[strings.ToLower(res.Login.Email)] = true
	}
	for _, want := range []string{
		"jose.nunez.0101@paciente.histomed.gt",
		"jose.nunez.0101-2@paciente.histomed.gt",
		"jose.nunez.0101-3@paciente.histomed.gt",
	} {
		if !seen[want] {
			t.Errorf("expected %s among %v", want, seen)
		}
	}
}

func TestService_CreatePatient_CollidesCaseInsensitively(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	store.Update(ctx, func(d *recordstore.Document) error {
		d.Users = append(d.Users, model.User{ID: "legacy", Role: model.RoleDerm, Email: "ANA.0000@Paciente.Histomed.GT"})
		return nil
	})
	res, err := svc.CreatePatient(ctx, CreateRequest{Name: "Ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Login.Email != "ana.0000-2@paciente.histomed.gt" {
		t.Errorf("expected collision suffix, got %q", res.Login.Email)
	}
}

func TestService_UpdatePatient(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()

	phone := "50001111"
	p, err := svc.UpdatePatient(ctx, recordstore.SeedPatientID, UpdateRequest{Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Phone != phone {
		t.Errorf("expected phone %s, got %s", phone, p.Phone)
	}
	if p.Name != "Juan Pérez" || p.DPI != "1234567890101" {
		t.Errorf("absent fields must not change, got %+v", p)
	}
	if p.UpdatedAt == nil || time.Since(*p.UpdatedAt) > time.Minute {
		t.Errorf("expected updatedAt refreshed, got %v", p.UpdatedAt)
	}
	if len(sink.events) != 1 || sink.events[0].Type != events.PatientUpdated {
		t.Errorf("expected patient.updated, got %+v", sink.events)
	}

	blank := "  "
	if _, err := svc.UpdatePatient(ctx, recordstore.SeedPatientID, UpdateRequest{Name: &blank}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for blank name, got %v", err)
	}
	if _, err := svc.UpdatePatient(ctx, "missing", UpdateRequest{Phone: &phone}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_DeletePatient_Cascades(t *testing.T) {
	svc, store, sink := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePatient(ctx, CreateRequest{Name: "Luis"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now().UTC()
	for _, pid := range []string{recordstore.SeedPatientID, created.ID} {
		pid := pid
		store.Update(ctx, func(d *recordstore.Document) error {
			d.Visits = append(d.Visits, model.Visit{ID: "v-" + pid, PatientID: pid, Reason: "Control", CreatedAt: now})
			d.Prescriptions = append(d.Prescriptions, model.Prescription{ID: "rx-" + pid, PatientID: pid, Items: []model.PrescriptionItem{model.PrescriptionItem(`{"med":"A"}`)}, CreatedAt: now})
			return nil
		})
	}

	res, err := svc.DeletePatient(ctx, recordstore.SeedPatientID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !res.Removed {
		t.Error("expected removed=true")
	}

	store.View(func(d *recordstore.Document) error {
		if d.Patient(recordstore.SeedPatientID) != nil {
			t.Error("patient still present")
		}
		if n := len(d.VisitsFor(recordstore.SeedPatientID)); n != 0 {
			t.Errorf("expected 0 visits, got %d", n)
		}
		if n := len(d.PrescriptionsFor(recordstore.SeedPatientID)); n != 0 {
			t.Errorf("expected 0 prescriptions, got %d", n)
		}
		for _, u := range d.Users {
			if u.PatientID == recordstore.SeedPatientID {
				t.Errorf("linked user %s still present", u.ID)
			}
		}
		if d.User(recordstore.SeedDermUserID) == nil {
			t.Error("staff user must survive")
		}
		if len(d.VisitsFor(created.ID)) != 1 || len(d.PrescriptionsFor(created.ID)) != 1 {
			t.Error("other patients' records must survive")
		}
		return nil
	})

	if len(sink.events) == 0 || sink.events[len(sink.events)-1].Type != events.PatientDeleted {
		t.Errorf("expected patient.deleted event, got %+v", sink.events)
	}

	again, err := svc.DeletePatient(ctx, recordstore.SeedPatientID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if again.Removed {
		t.Error("expected removed=false for absent id")
	}
}

func TestService_ListPatients(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	svc.CreatePatient(ctx, CreateRequest{Name: "Ana Gómez", DPI: "2222222220202", Phone: "41112222"})

	tests := []struct {
		q    string
		want int
	}{
		{"", 2},
		{"JUAN", 1},
		{"gómez", 1},
		{"0202", 1},
		{"5870", 1},
		{"zzz", 0},
	}
	for _, tt := range tests {
		list, err := svc.ListPatients(ctx, tt.q)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != tt.want {
			t.Errorf("q=%q: expected %d, got %d", tt.q, tt.want, len(list))
		}
	}

	list, _ := svc.ListPatients(ctx, "")
	if list[0].ID != recordstore.SeedPatientID {
		t.Error("expected insertion order")
	}
}
