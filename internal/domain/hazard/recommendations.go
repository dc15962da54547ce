package hazard

var forecastWindows = map[Kind]string{
	Frost:   "24-48 horas",
	Drought: "7-30 días",
	Pest:    "7-14 días",
}

var recommendations = map[Kind]map[Level][]string{
	Frost: {
		Critical: {
			"Activar riego por aspersión 2-3 horas antes del amanecer",
			"Preparar materiales para quema de biomasa",
			"Cubrir las plantas más sensibles con mantas térmicas",
			"Alertar al equipo de campo para monitoreo nocturno",
		},
		High: {
			"Tener el sistema de riego listo para activación",
			"Reunir biomasa para quema si es necesario",
			"Identificar áreas y cultivos más vulnerables",
			"Monitorear el pronóstico cada 3-4 horas",
		},
		Medium: {
			"Revisar el pronóstico meteorológico con frecuencia",
			"Verificar el funcionamiento de los sistemas de protección",
			"Monitorear la temperatura nocturna",
		},
		Low: {
			"Continuar el seguimiento del pronóstico",
			"Mantener los sistemas de protección operativos",
		},
	},
	Drought: {
		Critical: {
			"Riego urgente requerido",
			"Priorizar los cultivos más sensibles",
			"Considerar riego nocturno para reducir evaporación",
			"Aplicar mulching si aún no se ha hecho",
		},
		High: {
			"Programar riego en las próximas 48-72 horas",
			"Verificar el sistema de riego",
			"Calcular el volumen de agua necesario",
			"Monitorear el pronóstico de lluvias",
		},
		Medium: {
			"Revisar la humedad del suelo cada 2-3 días",
			"Estar preparado para regar si no llueve",
			"Observar signos visuales de estrés en las plantas",
		},
		Low: {
			"Continuar el monitoreo regular",
		},
	},
	Pest: {
		High: {
			"Inspeccionar el cultivo diariamente",
			"Buscar huevos, larvas y adultos",
			"Colocar trampas de monitoreo",
			"Preparar control biológico (Bt, nematodos)",
			"Si más del 5% de las plantas están afectadas, considerar tratamiento",
		},
		Medium: {
			"Inspeccionar 2-3 veces por semana",
			"Revisar el envés de las hojas",
			"Tener control biológico disponible",
			"Fomentar enemigos naturales",
		},
		Low: {
			"Inspección semanal",
			"Mantener prácticas preventivas",
			"Planificar la rotación de cultivos",
		},
	},
}

func recommendationsFor(k Kind, l Level) []string {
	return append([]string(nil), recommendations[k][l]...)
}
