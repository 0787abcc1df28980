// Package classify holds the independent boolean predicates the decision
// router combines. Every classifier takes normalized text (see
// extract.Normalize), is side-effect-free and never panics.
package classify

import (
	"strings"
	"unicode"

	"github.com/dealerflow-core/server/internal/agent/extract"
	"github.com/dealerflow-core/server/internal/agent/model"
)

var (
	safetyKeywords = []string{
		"processo", "processar", "advogado", "justica", "procon",
		"golpe", "fraude", "estelionato", "policia", "delegacia",
		"roubado", "clonado", "adulterado", "arma",
		"me matar", "suicidio", "acabar com a minha vida",
	}
	exitKeywords = []string{
		"tchau", "cancelar", "cancela", "nao quero mais", "sair",
		"encerrar", "remover meu numero", "remove meu numero",
		"para de me mandar", "parem de me mandar", "nao me mande mais",
		"desinscrever",
	}
	negotiationKeywords = []string{
		"financiamento", "financiar", "entrada", "parcela", "parcelas",
		"desconto", "negociar", "negociacao", "fechar negocio", "fechamos",
		"vendedor", "vendedora", "na troca", "avaliacao do meu",
		"proposta", "melhor preco",
	}
	frustrationKeywords = []string{
		"absurdo", "pessimo", "horrivel", "ridiculo", "palhacada",
		"ninguem responde", "ninguem me atende", "cansado de esperar",
		"cansada de esperar", "demora demais", "que demora",
	}
	priceWords = []string{
		"preco", "valor", "quanto custa", "quanto ta", "quanto sai",
		"quanto fica", "tabela",
	}
	stockKeywords = []string{
		"tem em estoque", "em estoque", "disponivel", "disponiveis",
		"a pronta entrega", "voces tem", "quais carros", "que carros",
		"quais modelos", "quais opcoes",
	}
	lowSignalWhitelist = []string{
		"ok", "okay", "ta", "ta bom", "blz", "beleza", "sei la",
		"hum", "humm", "aham", "uhum", "certo", "entendi", "tanto faz",
		"talvez", "pode ser", "vou ver", "depois eu vejo",
	}
	greetingWhitelist = []string{
		"oi", "ola", "oii", "oie", "bom dia", "boa tarde", "boa noite",
		"e ai", "eai", "opa", "tudo bem", "tudo bem?", "alo",
	}
	confirmationWhitelist = []string{
		"sim", "pode ser", "isso", "isso mesmo", "isso ai", "exato",
		"perfeito", "fechado", "combinado", "show", "top", "otimo",
		"legal", "gostei", "esse mesmo", "quero esse",
	}
	storeInfoKeywords = []string{
		"endereco", "onde fica", "onde voces ficam", "localizacao",
		"horario", "que horas abre", "que horas fecha", "funciona",
		"aberto hoje", "telefone de voces", "como chego",
	}
	offTopicKeywords = []string{
		"pizza", "emprestimo", "imovel", "apartamento", "aluguel",
		"celular", "iphone", "futebol", "receita", "clima", "loteria",
		"namoro", "emprego",
	}
	vehicleWords = []string{
		"carro", "carros", "veiculo", "veiculos", "moto", "automovel",
		"suv", "sedan", "hatch", "picape", "km", "test drive",
	}

	// category names and state abbreviations never count as low-signal,
	// even when three letters or shorter.
	lowSignalExclusions = []string{
		"suv", "gol", "ka", "kwid", "uno", "sedan", "hatch",
		"ac", "al", "am", "ap", "ba", "ce", "df", "es", "go", "ma",
		"mg", "ms", "mt", "pa", "pb", "pe", "pi", "pr", "rj", "rn",
		"ro", "rr", "rs", "sc", "se", "sp", "to",
	}
)

// Safety reports legal/crime/self-harm content that must short-circuit
// everything else.
func Safety(text string) bool {
	return containsAny(text, safetyKeywords)
}

// Exit reports an explicit request to stop the conversation.
func Exit(text string) bool {
	return containsAny(text, exitKeywords)
}

// Negotiation reports closing/financing intent. Bracketed system-injected
// messages are never negotiation, whatever they contain.
func Negotiation(text string) bool {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		return false
	}
	return containsAny(text, negotiationKeywords)
}

// Frustration fires on keywords, shouting (capitalized ratio over 0.6 on
// messages with more than 10 letters) or three-plus exclamation marks.
// It takes the raw text as well because normalization lowercases.
func Frustration(text, raw string) bool {
	if containsAny(text, frustrationKeywords) {
		return true
	}
	if strings.Count(raw, "!") >= 3 {
		return true
	}
	letters, upper := 0, 0
	for _, r := range raw {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters > 10 && float64(upper)/float64(letters) > 0.6
}

// PriceInquiry reports a low-intent price question: price words with no
// financing/closing vocabulary. It is informational, not an escalation.
func PriceInquiry(text string) bool {
	return containsAny(text, priceWords) && !containsAny(text, negotiationKeywords)
}

// StockRequest reports an explicit availability question. An extracted
// budget counts as one even without stock vocabulary.
func StockRequest(text string, hasBudget bool) bool {
	return hasBudget || containsAny(text, stockKeywords)
}

// LowSignal reports a short filler reply carrying no new information.
func LowSignal(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	for _, ex := range lowSignalExclusions {
		if t == ex {
			return false
		}
	}
	for _, w := range lowSignalWhitelist {
		if t == w {
			return true
		}
	}
	return len(t) <= 3
}

// Greeting reports a short salutation.
func Greeting(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) >= 30 {
		return false
	}
	for _, w := range greetingWhitelist {
		if t == w || strings.HasPrefix(t, w+" ") || strings.HasPrefix(t, w+",") {
			return true
		}
	}
	return false
}

// Confirmation reports a short agreement. It only holds when the
// conversation has prior context (filled slots or shown cars); with no
// context a bare "sim" is not a no-op confirmation.
func Confirmation(text string, hasContext bool) bool {
	if !hasContext {
		return false
	}
	t := strings.TrimSpace(text)
	if len(t) >= 25 {
		return false
	}
	for _, w := range confirmationWhitelist {
		if t == w {
			return true
		}
	}
	return false
}

// StoreInfo reports a question about the store itself.
func StoreInfo(text string) bool {
	return containsAny(text, storeInfoKeywords)
}

// OutOfScope reports off-topic content with no vehicle-related token to
// anchor it back to the domain.
func OutOfScope(text string, hasVehicleSignal bool) bool {
	if hasVehicleSignal || containsAny(text, vehicleWords) {
		return false
	}
	return containsAny(text, offTopicKeywords)
}

// Intent infers the free-text coarse intent the FSM uses for secondary
// stage inference. Empty when nothing identifiable.
func Intent(text string) model.Intent {
	switch {
	case containsAny(text, []string{"negociar", "proposta", "contraproposta", "ta caro", "muito caro", "abaixa"}):
		return model.IntentNegotiate
	case containsAny(text, []string{"test drive", "testdrive", "visitar", "visita", "agendar", "passar ai", "passar na loja", "ir ai"}):
		return model.IntentVisit
	case containsAny(text, []string{"comparar", "comparacao", "qual o melhor", "qual compensa", "diferenca entre"}):
		return model.IntentCompare
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(text, kw) {
				return true
			}
			continue
		}
		if extract.ContainsWord(text, kw) {
			return true
		}
	}
	return false
}
