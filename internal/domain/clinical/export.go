package clinical

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/histomed/histomed/internal/model"
)

const csvDateLayout = "2006-01-02 15:04"

var csvHeader = []string{"Fecha", "Recetado", "Prescrito"}

// WriteHistoryCSV writes one row per visit of h. Recetado lists medication
// items and Prescrito lists instructions.
func WriteHistoryCSV(w io.Writer, h *History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, entry := range h.Visits {
		var meds, instructions []string
		for _, rx := range entry.Prescriptions {
			for _, item := range rx.Items {
				it := item.Fields()
				line := it.Med + " — " + it.Dosis + " — " + it.Frecuencia
				if it.Tipo == model.ItemInstruction {
					instructions = append(instructions, line)
				} else {
					meds = append(meds, line)
				}
			}
		}
		row := []string{
			entry.Visit.CreatedAt.UTC().Format(csvDateLayout),
			strings.Join(meds, " | "),
			strings.Join(instructions, " | "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// historyFilename builds a download name from the patient name.
func historyFilename(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range name {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	base := strings.Trim(b.String(), "_")
	if base == "" {
		base = "paciente"
	}
	return "historial_" + base + ".csv"
}
