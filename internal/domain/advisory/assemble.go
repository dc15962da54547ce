package advisory

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/agroverse/internal/domain/knowledge"
)

const (
	notSpecified   = "No especificado"
	noContext      = "(No se encontraron documentos relevantes en la base de conocimientos.)"
	entrySeparator = "\n\n---\n\n"
)

const instructions = `INSTRUCCIONES:
1. Responde basándote PRINCIPALMENTE en el contexto proporcionado
2. Si el contexto no es suficiente, indica qué información adicional necesitas
3. Cita las fuentes específicas cuando uses información del contexto
4. Sé práctico y específico, evita generalidades
5. Usa lenguaje sencillo, considera que el usuario puede tener baja alfabetización digital
6. Si mencionas valores numéricos (NDVI, temperatura, etc.), explica qué significan

FORMATO DE RESPUESTA:
- Respuesta directa y práctica
- Pasos de acción específicos si aplica
- Fuentes citadas al final
`

// Assemble builds the grounded prompt for a farmer question.
// Results are rendered in the given order; nothing is reordered or de-duplicated.
func Assemble(query string, results []knowledge.Result, uc *UserContext) Request {
	var b strings.Builder
	b.WriteString("Eres un asistente agronómico experto que ayuda a agricultores con información precisa y práctica.\n\n")
	b.WriteString("CONTEXTO DE CONOCIMIENTO AGRÍCOLA:\n")

	sources := make([]string, 0, len(results))
	entries := make([]string, 0, len(results))
	for _, r := range results {
		doc := r.Document()
		if doc == nil {
			continue
		}
		entries = append(entries, fmt.Sprintf("**Fuente**: %s\n**Título**: %s\n**Contenido**:\n%s",
			doc.Source(), doc.Title(), doc.Body()))
		sources = append(sources, doc.Source())
	}
	if len(entries) == 0 {
		b.WriteString(noContext)
	} else {
		b.WriteString(strings.Join(entries, entrySeparator))
	}
	b.WriteString("\n\n")

	var user *UserContext
	if uc != nil && !uc.empty() {
		cp := *uc
		cp.Crops = append([]string(nil), uc.Crops...)
		user = &cp
		b.WriteString(user.block())
		b.WriteString("\n")
	}

	b.WriteString("PREGUNTA DEL AGRICULTOR:\n")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(instructions)

	return Request{
		query:   query,
		results: append([]knowledge.Result(nil), results...),
		user:    user,
		prompt:  b.String(),
		sources: sources,
	}
}

func (u *UserContext) empty() bool {
	return len(u.Crops) == 0 && strings.TrimSpace(u.Location) == "" && strings.TrimSpace(u.Experience) == ""
}

func (u *UserContext) block() string {
	crops := strings.Join(u.Crops, ", ")
	return fmt.Sprintf("DATOS DEL USUARIO:\n- Cultivos: %s\n- Ubicación: %s\n- Experiencia: %s\n",
		orUnspecified(crops), orUnspecified(u.Location), orUnspecified(u.Experience))
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}
