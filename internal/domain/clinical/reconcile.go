package clinical

import (
	"sort"
	"time"

	"github.com/histomed/histomed/internal/model"
)

// DefaultTolerance is how far a prescription may be from a visit and still
// be associated with it.
const DefaultTolerance = 24 * time.Hour

// Association groups prescriptions under visits.
type Association struct {
	ByVisit map[string][]model.Prescription
	Orphans []model.Prescription
}

// For returns the prescriptions associated with the visit.
func (a Association) For(visitID string) []model.Prescription {
	if rxs := a.ByVisit[visitID]; rxs != nil {
		return rxs
	}
	return []model.Prescription{}
}

// Associate attaches each prescription to the visit named by its visitId
// when that visit is known. Otherwise it picks the visit nearest in time,
// provided the gap is within tolerance; ties go to the earliest visit.
// Everything else is an orphan.
func Associate(visits []model.Visit, prescriptions []model.Prescription, tolerance time.Duration) Association {
	ordered := make([]model.Visit, len(visits))
	copy(ordered, visits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	a := Association{
		ByVisit: make(map[string][]model.Prescription, len(ordered)),
		Orphans: []model.Prescription{},
	}
	known := make(map[string]bool, len(ordered))
	for _, v := range ordered {
		known[v.ID] = true
	}

	for _, rx := range prescriptions {
		if rx.VisitID != "" && known[rx.VisitID] {
			a.ByVisit[rx.VisitID] = append(a.ByVisit[rx.VisitID], rx)
			continue
		}

		best := ""
		var bestDiff time.Duration
		for _, v := range ordered {
			d := absDuration(v.CreatedAt.Sub(rx.CreatedAt))
			if best == "" || d < bestDiff {
				best, bestDiff = v.ID, d
			}
		}
		if best != "" && bestDiff <= tolerance {
			a.ByVisit[best] = append(a.ByVisit[best], rx)
		} else {
			a.Orphans = append(a.Orphans, rx)
		}
	}
	return a
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// BuildHistory reconciles over every visit, then keeps the visits inside r,
// newest first.
func BuildHistory(rec *Records, r DayRange, tolerance time.Duration) *History {
	assoc := Associate(rec.Visits, rec.Prescriptions, tolerance)

	h := &History{
		PatientID: rec.Patient.ID,
		Visits:    []HistoryEntry{},
		Orphans:   assoc.Orphans,
	}
	if !r.From.IsZero() {
		h.From = r.From.Format(dayLayout)
	}
	if !r.To.IsZero() {
		h.To = r.To.Format(dayLayout)
	}
	for _, v := range rec.Visits {
		if r.Contains(v.CreatedAt) {
			h.Visits = append(h.Visits, HistoryEntry{Visit: v, Prescriptions: assoc.For(v.ID)})
		}
	}
	sort.SliceStable(h.Visits, func(i, j int) bool {
		return h.Visits[i].Visit.CreatedAt.After(h.Visits[j].Visit.CreatedAt)
	})
	return h
}
