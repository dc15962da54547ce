package knowledge

// DefaultVersion labels the built-in corpus.
const DefaultVersion = "agro-2024.1"

type seed struct {
	id, title, source, body string
	keywords                []string
	embedding               []float32
}

var builtin = []seed{
	{
		id:     "fao_001",
		title:  "Manejo Integrado de Plagas en Papa",
		source: "FAO - Guía de Buenas Prácticas Agrícolas",
		body: `El manejo integrado de plagas (MIP) en papa debe considerar:
1. Monitoreo regular del cultivo (2-3 veces por semana)
2. Uso de variedades resistentes cuando sea posible
3. Rotación de cultivos para romper ciclos de plagas
4. Control biológico antes que químico
5. Aplicación de pesticidas solo cuando sea necesario

Plagas principales: Polilla de la papa, Gusano blanco, Pulgones
Umbrales de acción: >5% de plantas afectadas`,
		keywords:  []string{"papa", "plagas", "mip", "control", "pulgones", "polilla"},
		embedding: []float32{0.23, 0.45, 0.67, 0.12, 0.89},
	},
	{
		id:     "nasa_002",
		title:  "Interpretación de NDVI para Salud de Cultivos",
		source: "NASA Earth Observatory",
		body: `El NDVI (Normalized Difference Vegetation Index) es un indicador de salud vegetal:

Valores de NDVI:
- 0.8 - 1.0: Vegetación muy densa y saludable (bosques)
- 0.6 - 0.8: Vegetación moderada a densa (cultivos saludables)
- 0.4 - 0.6: Vegetación moderada (cultivos en crecimiento)
- 0.2 - 0.4: Vegetación escasa (cultivos estresados o suelo con cobertura)
- 0.0 - 0.2: Suelo desnudo o vegetación muy escasa
- < 0: Agua, nieve, nubes

Un NDVI decreciente indica estrés por sequía, plagas o enfermedades.`,
		keywords:  []string{"ndvi", "salud", "vegetación", "satelital", "índice", "estrés"},
		embedding: []float32{0.78, 0.34, 0.56, 0.91, 0.23},
	},
	{
		id:     "inia_003",
		title:  "Predicción y Prevención de Heladas",
		source: "INIA Perú - Manual de Agricultura Andina",
		body: `Estrategias para prevenir daños por heladas:

Predicción:
- Temperatura < 5°C y descendiendo: riesgo medio
- Temperatura < 2°C: riesgo alto
- Humedad baja + cielo despejado + viento calmo = alta probabilidad

Métodos de protección:
1. Riego por aspersión antes de helada (libera calor)
2. Quema de biomasa para generar humo y calor
3. Mantas térmicas o coberturas plásticas
4. Siembra escalonada para diversificar riesgo

Cultivos más sensibles: papa, maíz, tomate (daño a -2°C)
Cultivos resistentes: quinua, habas, cebada (resisten hasta -8°C)`,
		keywords:  []string{"heladas", "frío", "protección", "temperatura", "prevención"},
		embedding: []float32{0.45, 0.67, 0.23, 0.89, 0.12},
	},
	{
		id:     "fao_004",
		title:  "Riego Eficiente y Manejo del Agua",
		source: "FAO - Productividad del Agua",
		body: `Principios de riego eficiente:

1. Riego por goteo: 90-95% eficiencia
2. Riego por aspersión: 75-85% eficiencia
3. Riego por gravedad: 50-70% eficiencia

Cálculo de necesidades:
- Evapotranspiración (ET0) - Precipitación efectiva = Déficit hídrico
- Regar cuando déficit > 25% del agua disponible en suelo

Uso de NDWI (Normalized Difference Water Index):
- NDWI > 0.2: Sin estrés hídrico
- NDWI 0 - 0.2: Estrés leve
- NDWI < 0: Estrés moderado a severo

Momento óptimo de riego: temprano en la mañana o tarde`,
		keywords:  []string{"riego", "agua", "eficiencia", "sequía", "ndwi", "goteo"},
		embedding: []float32{0.34, 0.56, 0.78, 0.12, 0.45},
	},
	{
		id:     "nasa_005",
		title:  "Temperatura Superficial (LST) y Estrés Térmico",
		source: "NASA POWER - Agroclimatología",
		body: `Land Surface Temperature (LST) indica estrés térmico:

Umbrales críticos por cultivo:
- Papa: LST > 35°C = estrés severo
- Maíz: LST > 38°C = reducción de rendimiento
- Tomate: LST > 32°C = caída de flores

Interpretación:
- LST nocturna < 10°C: Riesgo de helada
- LST diurna > 40°C: Estrés térmico extremo
- Diferencia día-noche > 20°C: Alta radiación, riesgo de helada

Mitigación:
- Mulching para reducir temperatura del suelo
- Riego por aspersión para enfriamiento evaporativo
- Mallas de sombreado en cultivos sensibles`,
		keywords:  []string{"temperatura", "lst", "estrés", "térmico", "calor", "landsat"},
		embedding: []float32{0.67, 0.23, 0.45, 0.78, 0.34},
	},
}

// DefaultCorpus returns a fresh copy of the built-in agronomic corpus.
// It panics only if the built-in table is malformed.
func DefaultCorpus() *Corpus {
	docs := make([]Document, 0, len(builtin))
	for _, s := range builtin {
		d, err := NewDocument(s.id, s.title, s.source, s.body, s.keywords, s.embedding)
		if err != nil {
			panic("knowledge: built-in corpus: " + err.Error())
		}
		docs = append(docs, d)
	}
	c, err := NewCorpus(DefaultVersion, docs...)
	if err != nil {
		panic("knowledge: built-in corpus: " + err.Error())
	}
	return c
}
