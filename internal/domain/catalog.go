package domain

// Question is one catalog entry with its fixed option set.
type Question struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Winner  bool     `json:"winner,omitempty"`
}

// Catalog is the static ordered question list for the event. Exactly one
// entry carries the Winner flag; it scores double.
type Catalog struct {
	questions []Question
	byID      map[int]Question
	winnerID  int
}

// NewCatalog builds a catalog from an ordered question list.
func NewCatalog(questions []Question) *Catalog {
	c := &Catalog{
		questions: questions,
		byID:      make(map[int]Question, len(questions)),
	}
	for _, q := range questions {
		c.byID[q.ID] = q
		if q.Winner {
			c.winnerID = q.ID
		}
	}
	return c
}

// Questions returns the ordered question list.
func (c *Catalog) Questions() []Question { return c.questions }

// Question looks up a catalog entry by id.
func (c *Catalog) Question(id int) (Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Size is the total question count; a participant is complete once every
// catalog question has a non-absent answer.
func (c *Catalog) Size() int { return len(c.questions) }

// WinnerQuestionID is the id of the designated double-weight question.
func (c *Catalog) WinnerQuestionID() int { return c.winnerID }

// HasOption reports whether value is one of the question's declared options.
func (c *Catalog) HasOption(questionID int, value string) bool {
	q, ok := c.byID[questionID]
	if !ok {
		return false
	}
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// DefaultCatalog is the Super Bowl LX quiniela: 17 questions, question 14
// (the game winner) scoring double. The id of the winner question is fixed
// at deployment time and must not be inferred from the data.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Question{
		{ID: 1, Prompt: "¿Quién gana el volado?", Options: []string{"Seahawks", "Patriots"}},
		{ID: 2, Prompt: "¿Qué cara cae en la moneda?", Options: []string{"Cara (Heads)", "Cruz (Tails)"}},
		{ID: 3, Prompt: "Duración del Himno Nacional", Options: []string{"Más de 119.5 seg", "Menos de 119.5 seg"}},
		{ID: 4, Prompt: "Primer Touchdown: ¿Cómo se anota?", Options: []string{"Por Pase", "Por Carrera", "Defensa/Equipos Especiales"}},
		{ID: 5, Prompt: "¿El balón pega en los postes? (Doink)", Options: []string{"Sí, ¡Doink!", "No"}},
		{ID: 6, Prompt: "¿Habrá un Safety en el partido?", Options: []string{"Sí", "No"}},
		{ID: 7, Prompt: "¿Qué pasa primero: Pase Incompleto o Intercepción?", Options: []string{"Pase Incompleto", "Intercepción"}},
		{ID: 8, Prompt: "Distancia del 1er Gol de Campo", Options: []string{"Más de 38.5 yardas", "Menos de 38.5 yardas"}},
		{ID: 9, Prompt: "¿Última jugada será rodilla al piso?", Options: []string{"Sí (Victory Formation)", "No"}},
		{ID: 10, Prompt: "1ra Canción de Bad Bunny", Options: []string{"Tití Me Preguntó", "Mónaco", "Baile Inolvidable", "Otra canción"}},
		{ID: 11, Prompt: "¿Qué trae Bad Bunny en la cabeza al salir?", Options: []string{"Gorra de béisbol", "Sombrero de paja/vaquero", "Nada (pelo suelto)", "Otro accesorio"}},
		{ID: 12, Prompt: "¿Quién será el invitado sorpresa?", Options: []string{"Cardi B", "J Balvin", "Jennifer Lopez", "Nadie / Otro artista"}},
		{ID: 13, Prompt: "Total de Canciones en el Show", Options: []string{"12 o más (Over)", "11 o menos (Under)"}},
		{ID: 14, Prompt: "GANADOR DEL SUPER BOWL LX", Options: []string{"Seattle Seahawks", "New England Patriots"}, Winner: true},
		{ID: 15, Prompt: "Total de Puntos Combinados", Options: []string{"Más de 45.5 (Over)", "Menos de 45.5 (Under)"}},
		{ID: 16, Prompt: "MVP del Super Bowl", Options: []string{"Un Quarterback", "Receptor o Corredor", "Jugador Defensivo"}},
		{ID: 17, Prompt: "Color del Gatorade al Entrenador", Options: []string{"Naranja", "Amarillo/Verde Lima", "Azul", "Otro color / No le tiran"}},
	})
}
