package advisory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Defaults applied to image requests.
const (
	DefaultImageQuery = "¿Qué ves en esta imagen?"
	DefaultCropType   = "desconocido"
	DefaultSensorType = "3-in-1"
)

// AssembleImageAnalysis builds the crop-photo diagnosis prompt.
func AssembleImageAnalysis(query, cropType string) string {
	if strings.TrimSpace(query) == "" {
		query = DefaultImageQuery
	}
	if strings.TrimSpace(cropType) == "" {
		cropType = DefaultCropType
	}
	return fmt.Sprintf(`Eres un agrónomo experto analizando una imagen de cultivo.

TIPO DE CULTIVO: %s

PREGUNTA: %s

Analiza la imagen y proporciona:
1. Diagnóstico visual (color, textura, patrones anormales)
2. Posibles problemas identificados (plagas, enfermedades, deficiencias)
3. Nivel de severidad (leve, moderado, severo)
4. Recomendaciones de acción inmediata
5. Seguimiento sugerido

Sé específico y práctico en tus recomendaciones.
`, cropType, query)
}

// AssembleSensorExtraction builds the soil-meter reading prompt.
func AssembleSensorExtraction(sensorType string) string {
	if strings.TrimSpace(sensorType) == "" {
		sensorType = DefaultSensorType
	}
	return fmt.Sprintf(`Analiza esta imagen de un medidor de suelo tipo %s.

TAREA: Extraer los valores numéricos que muestra el medidor.

Medidores comunes:
- 3-in-1: pH (4-9), Humedad (1-10), Luz (0-2000 lux)
- 4-in-1: pH, Humedad, Temperatura, Luz
- Digital: Lecturas numéricas en pantalla LCD

INSTRUCCIONES:
1. Identifica el tipo exacto de medidor
2. Lee cada valor mostrado
3. Indica unidades de medida
4. Si hay alguna lectura dudosa, indica "no legible"

FORMATO DE RESPUESTA (JSON):
{
    "sensor_type": "3-in-1",
    "readings": {
        "ph": 6.5,
        "humidity": 7,
        "light": 850
    },
    "confidence": "high/medium/low",
    "notes": "Cualquier observación adicional"
}
`, sensorType)
}

// RawResponseKey holds the unparsed reply when no JSON object can be extracted.
const RawResponseKey = "raw_response"

// ExtractJSONObject decodes the span from the first '{' to the last '}' of text.
// Anything unparseable yields {"raw_response": text}.
func ExtractJSONObject(text string) map[string]any {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		var out map[string]any
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil && out != nil {
			return out
		}
	}
	return map[string]any{RawResponseKey: text}
}
