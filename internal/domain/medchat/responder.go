// Package medchat answers common dermatology questions from a fixed set of
// keyword rules. It gives general guidance only.
package medchat

import (
	"strings"

	"github.com/histomed/histomed/pkg/textnorm"
)

// Disclaimer is appended to every matched answer.
const Disclaimer = "Esta información es orientativa y no reemplaza la evaluación de tu dermatólogo tratante."

// Fallback is returned when no rule matches.
const Fallback = "Puedo orientarte sobre acné, adapaleno, melasma y fotoprotección, " +
	"signos de alarma en la piel, rutinas básicas de cuidado y dermatitis. " +
	"Reformula tu pregunta con alguno de esos temas o consúltala con tu dermatólogo."

// Rule answers when any keyword occurs in the folded question. Keywords are
// written already folded.
type Rule struct {
	Name     string
	Keywords []string
	Answer   string
}

// DefaultRules are evaluated in order; the first match wins.
var DefaultRules = []Rule{
	{
		Name:     "adapaleno",
		Keywords: []string{"adapaleno", "adapalene", "retinoide"},
		Answer: "Adapaleno tópico: efectos secundarios frecuentes son resequedad, enrojecimiento, " +
			"descamación y ardor leve, sobre todo en las primeras 2 a 4 semanas. Aplícalo de noche " +
			"en capa fina sobre piel seca, usa hidratante y protector solar de día, y evita " +
			"exfoliantes fuertes. No se recomienda durante el embarazo.",
	},
	{
		Name:     "signos-alarma",
		Keywords: []string{"alarma", "urgencia", "emergencia", "sangra", "crece rapido", "lunar"},
		Answer: "Signos de alarma dermatológicos: lunar que cambia de tamaño, forma o color " +
			"(regla ABCDE), lesión que sangra o no cicatriza en 3 semanas, ampollas extensas, " +
			"fiebre con erupción, dolor intenso, hinchazón de labios o párpados y dificultad para " +
			"respirar. Ante cualquiera de estos signos busca atención médica pronto.",
	},
	{
		Name:     "melasma-fotoproteccion",
		Keywords: []string{"melasma", "fotoproteccion", "protector solar", "bloqueador", "manchas"},
		Answer: "Melasma y fotoprotección: usa protector solar de amplio espectro FPS 50 o mayor, " +
			"preferiblemente con color (óxido de hierro) para cubrir luz visible, y reaplícalo cada " +
			"2 a 3 horas. Complementa con sombrero y sombra, evita calor intenso y suspende " +
			"cosméticos irritantes. Los despigmentantes se indican tras valoración.",
	},
	{
		Name:     "rutina",
		Keywords: []string{"rutina", "skincare", "cuidado de la piel"},
		Answer: "Rutina básica: mañana, limpiador suave, hidratante no comedogénico y protector " +
			"solar FPS 50. Noche, limpiador suave, tratamiento indicado (por ejemplo adapaleno o " +
			"peróxido de benzoilo en acné) e hidratante. Introduce un producto nuevo a la vez y " +
			"evita frotar o exfoliar en exceso.",
	},
	{
		Name:     "acne",
		Keywords: []string{"acne", "espinilla", "barro", "comedon"},
		Answer: "Acné: lava el rostro dos veces al día con limpiador suave, no manipules las " +
			"lesiones y usa productos no comedogénicos. En acné leve suelen usarse retinoides " +
			"tópicos o peróxido de benzoilo; el acné moderado o con cicatrices requiere valoración " +
			"para tratamiento oral.",
	},
	{
		Name:     "dermatitis",
		Keywords: []string{"dermatitis", "eczema", "eccema", "picazon", "comezon"},
		Answer: "Dermatitis: baños cortos con agua tibia, jabón sin fragancia y emoliente abundante " +
			"justo después del baño. Identifica y evita irritantes o alérgenos. Si hay lesiones " +
			"extensas, exudado o infección, consulta para valorar corticoide tópico.",
	},
	{
		Name:     "rosacea",
		Keywords: []string{"rosacea", "rubor", "enrojecimiento facial"},
		Answer: "Rosácea: evita desencadenantes como sol, calor, alcohol, picantes y bebidas " +
			"calientes. Usa limpiador suave, hidratante calmante y protector solar mineral. " +
			"Existen tratamientos tópicos y orales que tu dermatólogo puede indicar.",
	},
}

// Responder picks a canned answer for the last user message.
type Responder struct {
	rules []Rule
}

func NewResponder(rules []Rule) *Responder {
	if rules == nil {
		rules = DefaultRules
	}
	return &Responder{rules: rules}
}

// Reply answers the last message whose role is "user". The system prompt is
// accepted but not used for matching.
func (r *Responder) Reply(req Request) Response {
	question := lastUserMessage(req.Messages)
	if question == "" {
		return Response{Text: Fallback}
	}
	folded := textnorm.Fold(question)
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(folded, kw) {
				return Response{Text: rule.Answer + "\n\n" + Disclaimer}
			}
		}
	}
	return Response{Text: Fallback}
}

func lastUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return strings.TrimSpace(msgs[i].Content)
		}
	}
	return ""
}
