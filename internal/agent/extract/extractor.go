package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dealerflow-core/server/internal/agent/model"
)

// plausible model-year window for year extraction.
const (
	minYear = 1990
	maxYear = 2035
)

// cue tables. All entries are matched against normalized text.
var (
	// possessionCues signal the user is talking about a car they own.
	possessionCues = []string{
		"tenho um", "tenho uma", "meu carro", "minha", "meu",
		"na troca", "dou na troca", "de entrada", "dar de entrada",
	}
	// interestCues introduce the vehicle the user actually wants.
	interestCues = []string{
		"quero", "queria", "procuro", "procurando", "busco", "buscando",
		"trocar por", "troca por", "interesse em", "interessado em", "interessada em",
		"to atras de", "estou atras de", "pensando em",
	}
	// queryMarkers open a generic inventory question.
	queryMarkers = []string{
		"quais carros", "que carros", "o que voces tem", "o que tem",
		"opcoes", "modelos disponiveis", "tem algo", "teria algo",
		"voces tem",
	}
	// narrativeMarkers flag third-party anecdotes, not requests.
	narrativeMarkers = []string{
		"meu tio", "minha tia", "meu amigo", "minha amiga", "meu vizinho",
		"meu pai", "minha mae", "meu irmao", "minha irma", "meu chefe",
		"ele anda", "ela anda", "do meu", "da minha",
	}

	transmissionAuto   = []string{"automatico", "automatica", "cvt", "cambio at"}
	transmissionManual = []string{"manual", "cambio manual"}

	paymentCash       = []string{"a vista", "avista", "dinheiro", "pix"}
	paymentFinancing  = []string{"financiado", "financiar", "financiamento", "parcelado", "parcelar", "prestacao", "prestacoes"}
	paymentConsortium = []string{"consorcio"}

	urgencyHigh = []string{"urgente", "pra hoje", "para hoje", "essa semana", "o quanto antes", "pra ontem", "preciso logo"}
	urgencyLow  = []string{"sem pressa", "so pesquisando", "so olhando", "mais pra frente", "sem urgencia"}

	tradeInYes = []string{"na troca", "tenho um carro pra dar", "dou na troca", "de entrada", "avaliar o meu", "avaliacao do meu", "trocar o meu"}
	tradeInNo  = []string{"sem troca", "nao tenho carro na troca", "nao tenho troca"}

	motorKeywords = []string{"turbo", "aspirado", "flex", "diesel", "hibrido", "eletrico"}

	reMotorSize  = regexp.MustCompile(`\b([12]\.\d)\b`)
	reYear       = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	reYearFromTo = regexp.MustCompile(`\bde\s+(19\d{2}|20\d{2})\s+(?:a|ate)\s+(19\d{2}|20\d{2})\b`)
	reYearFloor  = regexp.MustCompile(`\b(?:a partir de|acima de|apos)\s+(19\d{2}|20\d{2})\b`)
	reYearCeil   = regexp.MustCompile(`\b(?:ate|no maximo)\s+(19\d{2}|20\d{2})\b`)
)

// Extractor turns free text into partial slot signals. It is pure and
// total: no input panics, no match yields an empty Slots. Vocabulary is
// data so locale variants never fork the code.
type Extractor struct {
	vocab *Vocabulary
}

// New builds an extractor over the given vocabulary; nil means the default
// Brazilian tables.
func New(vocab *Vocabulary) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Extractor{vocab: vocab}
}

// Extract runs every slot extractor over one raw message and returns the
// combined partial signals.
func (e *Extractor) Extract(raw string) model.Slots {
	text := e.CorrectTypos(Normalize(raw))

	var out model.Slots
	out.Model, out.Make = e.extractModelAndBrand(text)
	if out.Make == "" {
		out.Make = e.extractBrand(text)
	}

	if pr := ExtractPrice(text); !pr.IsZero() {
		out.BudgetMin, out.BudgetMax = pr.Min, pr.Max
	}

	out.Category = e.matchTable(text, e.vocab.Categories)
	if color := e.matchTable(text, e.vocab.Colors); color != "" && !e.suppressed(text, color) {
		out.Color = color
	}
	out.Transmission = extractTransmission(text)
	out.PaymentMethod = extractPayment(text)
	out.Urgency = extractUrgency(text)
	out.Motor = extractMotor(text)
	out.YearMin, out.YearMax = extractYear(text)

	e.extractTradeIn(text, &out)
	return out
}

// CorrectTypos rewrites known misspellings to canonical model names. It
// operates on already-normalized text. Keys are applied in sorted order so
// extraction stays deterministic.
func (e *Extractor) CorrectTypos(text string) string {
	for _, wrong := range sortedKeys(e.vocab.Typos) {
		right := e.vocab.Typos[wrong]
		for {
			i := indexWord(text, wrong)
			if i < 0 {
				break
			}
			text = text[:i] + right + text[i+len(wrong):]
		}
	}
	return text
}

// extractModelAndBrand finds the vehicle of purchase interest. Longest
// model name wins; in a trade-in context only models after an explicit
// interest cue count, and in a casual narrative context models mentioned
// before the generic query marker are suppressed.
func (e *Extractor) extractModelAndBrand(text string) (string, string) {
	searchFrom := 0

	if containsAnyWord(text, possessionCues) {
		// Never default to "first model mentioned" in a trade scenario:
		// require an interest cue and look only after it.
		cue := firstWordIndex(text, interestCues)
		if cue < 0 {
			return "", ""
		}
		searchFrom = cue
	} else if q := firstWordIndex(text, queryMarkers); q >= 0 && containsAnyWord(text, narrativeMarkers) {
		// "meu tio tem um X... quais carros voces tem": X is anecdote.
		searchFrom = q
	}

	region := text[searchFrom:]
	for _, name := range e.vocab.ModelsByLength() {
		if containsWord(region, name) {
			return name, e.vocab.BrandOf(name)
		}
	}
	return "", ""
}

// extractBrand matches direct brand keywords.
func (e *Extractor) extractBrand(text string) string {
	return e.matchTable(text, e.vocab.Brands)
}

// suppressed applies the casual-context rule to non-model tokens too: a
// color inside the anecdote part of a generic query is not a request.
func (e *Extractor) suppressed(text, token string) bool {
	q := firstWordIndex(text, queryMarkers)
	if q < 0 || !containsAnyWord(text, narrativeMarkers) {
		return false
	}
	i := indexWord(text, token)
	return i >= 0 && i < q
}

// extractTradeIn fills HasTradeIn and, when identifiable, the trade-in
// vehicle itself (the model owned, not the one wanted).
func (e *Extractor) extractTradeIn(text string, out *model.Slots) {
	switch {
	case containsAnyWord(text, tradeInNo):
		v := false
		out.HasTradeIn = &v
		return
	case containsAnyWord(text, narrativeMarkers):
		// third-party anecdote, not the lead's own car
		return
	case containsAnyWord(text, tradeInYes):
		v := true
		out.HasTradeIn = &v
		out.TradeInModel = e.ownedModel(text, out.Model)
	case containsAnyWord(text, possessionCues):
		// possession alone only counts when the model directly follows the
		// cue ("tenho um civic"), otherwise "minha esposa quer um onix"
		// would record the car they want to buy as the car they own.
		owned := e.possessedModel(text, out.Model)
		if owned == "" {
			return
		}
		v := true
		out.HasTradeIn = &v
		out.TradeInModel = owned
	}
}

// possessedModel accepts an owned model only when it sits right after a
// possession cue, optionally separated by an article. "tenho um civic"
// owns a civic; a model elsewhere in the sentence is not possessed.
func (e *Extractor) possessedModel(text, interest string) string {
	for _, cue := range possessionCues {
		for i := 0; i+len(cue) <= len(text); {
			j := strings.Index(text[i:], cue)
			if j < 0 {
				break
			}
			j += i
			i = j + 1
			if !isWordBoundary(text, j-1) || !isWordBoundary(text, j+len(cue)) {
				continue
			}
			rest := strings.TrimLeft(text[j+len(cue):], " ")
			for _, art := range []string{"um ", "uma ", "o ", "a "} {
				if strings.HasPrefix(rest, art) {
					rest = strings.TrimLeft(rest[len(art):], " ")
					break
				}
			}
			for _, name := range e.vocab.ModelsByLength() {
				if name == interest {
					continue
				}
				if strings.HasPrefix(rest, name) && isWordBoundary(rest, len(name)) {
					return name
				}
			}
		}
	}
	return ""
}

// ownedModel finds a model mentioned in possession context, distinct from
// the interest model.
func (e *Extractor) ownedModel(text, interest string) string {
	cue := firstWordIndex(text, interestCues)
	region := text
	if cue > 0 {
		region = text[:cue]
	}
	for _, name := range e.vocab.ModelsByLength() {
		if name == interest {
			continue
		}
		if containsWord(region, name) {
			return name
		}
	}
	return ""
}

// matchTable returns the canonical value of the first alias (in sorted
// order, for determinism) found as a whole word.
func (e *Extractor) matchTable(text string, table map[string]string) string {
	for _, alias := range sortedKeys(table) {
		if containsWord(text, alias) {
			return table[alias]
		}
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func extractTransmission(text string) string {
	if containsAnyWord(text, transmissionAuto) {
		return "automatico"
	}
	// "manual" must not fire on "manual do proprietario"
	if containsAnyWord(text, transmissionManual) && !strings.Contains(text, "manual do") {
		return "manual"
	}
	return ""
}

func extractPayment(text string) string {
	switch {
	case containsAnyWord(text, paymentFinancing):
		return "financiamento"
	case containsAnyWord(text, paymentConsortium):
		return "consorcio"
	case containsAnyWord(text, paymentCash):
		return "a vista"
	}
	return ""
}

func extractUrgency(text string) string {
	switch {
	case containsAnyWord(text, urgencyHigh):
		return "alta"
	case containsAnyWord(text, urgencyLow):
		return "baixa"
	}
	return ""
}

func extractMotor(text string) string {
	if m := reMotorSize.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, kw := range motorKeywords {
		if containsWord(text, kw) {
			return kw
		}
	}
	return ""
}

// extractYear reads year bounds. A range or bounded form wins over a bare
// year; a bare year fills both bounds.
func extractYear(text string) (int, int) {
	toYear := func(s string) int {
		y, _ := strconv.Atoi(s)
		if y < minYear || y > maxYear {
			return 0
		}
		return y
	}
	if m := reYearFromTo.FindStringSubmatch(text); m != nil {
		lo, hi := toYear(m[1]), toYear(m[2])
		if lo > 0 && hi > 0 {
			if lo > hi {
				lo, hi = hi, lo
			}
			return lo, hi
		}
	}
	if m := reYearFloor.FindStringSubmatch(text); m != nil {
		if y := toYear(m[1]); y > 0 {
			return y, 0
		}
	}
	if m := reYearCeil.FindStringSubmatch(text); m != nil {
		if y := toYear(m[1]); y > 0 {
			return 0, y
		}
	}
	if m := reYear.FindStringSubmatch(text); m != nil {
		if y := toYear(m[1]); y > 0 {
			return y, y
		}
	}
	return 0, 0
}
