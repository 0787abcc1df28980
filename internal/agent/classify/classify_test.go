package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealerflow-core/server/internal/agent/extract"
	"github.com/dealerflow-core/server/internal/agent/model"
)

func norm(s string) string { return extract.Normalize(s) }

func TestSafety(t *testing.T) {
	assert.True(t, Safety(norm("vou falar com meu advogado")))
	assert.True(t, Safety(norm("isso é golpe")))
	assert.False(t, Safety(norm("quero um corolla")))
}

func TestExit(t *testing.T) {
	assert.True(t, Exit(norm("não quero mais, tchau")))
	assert.True(t, Exit(norm("pode cancelar")))
	assert.False(t, Exit(norm("quero ver opções")))
}

func TestNegotiationSkipsBracketedSystemMessages(t *testing.T) {
	assert.True(t, Negotiation(norm("queria saber do financiamento")))
	assert.True(t, Negotiation(norm("qual o desconto a vista?")))
	assert.False(t, Negotiation(norm("[sistema: financiamento aprovado]")))
}

func TestFrustration(t *testing.T) {
	assert.True(t, Frustration(norm("isso é um absurdo"), "isso é um absurdo"))
	assert.True(t, Frustration(norm("CADE A RESPOSTA DE VOCES"), "CADE A RESPOSTA DE VOCES"))
	assert.True(t, Frustration(norm("alo!!! alguem ai"), "alo!!! alguem ai"))
	assert.False(t, Frustration(norm("Oi, tudo bem?"), "Oi, tudo bem?"))
	// short shouting is not frustration: needs more than 10 letters
	assert.False(t, Frustration(norm("OI"), "OI"))
}

func TestPriceInquiryVersusNegotiation(t *testing.T) {
	assert.True(t, PriceInquiry(norm("quanto custa o onix?")))
	// price words with financing words escalate instead
	assert.False(t, PriceInquiry(norm("qual o valor da parcela no financiamento?")))
}

func TestStockRequest(t *testing.T) {
	assert.True(t, StockRequest(norm("tem em estoque?"), false))
	assert.True(t, StockRequest(norm("qualquer coisa"), true), "extracted budget counts as stock request")
	assert.False(t, StockRequest(norm("bom dia"), false))
}

func TestLowSignal(t *testing.T) {
	assert.True(t, LowSignal(norm("ok")))
	assert.True(t, LowSignal(norm("sei lá")))
	assert.True(t, LowSignal(norm("tá")))
	// category names and state abbreviations are excluded even when short
	assert.False(t, LowSignal(norm("suv")))
	assert.False(t, LowSignal(norm("gol")))
	assert.False(t, LowSignal(norm("SP")))
	assert.False(t, LowSignal(norm("quero um corolla")))
}

func TestGreeting(t *testing.T) {
	assert.True(t, Greeting(norm("oi")))
	assert.True(t, Greeting(norm("Bom dia, tudo bem?")))
	assert.False(t, Greeting(norm("bom dia, queria ver o estoque de suv de voces hoje")))
}

func TestConfirmationRequiresContext(t *testing.T) {
	assert.True(t, Confirmation(norm("pode ser"), true))
	assert.True(t, Confirmation(norm("isso mesmo"), true))
	assert.False(t, Confirmation(norm("pode ser"), false), "no context, not a no-op confirmation")
	assert.False(t, Confirmation(norm("pode ser que sim, mas me explica melhor tudo"), true))
}

func TestStoreInfo(t *testing.T) {
	assert.True(t, StoreInfo(norm("onde fica a loja?")))
	assert.True(t, StoreInfo(norm("qual o horário de vocês?")))
	assert.False(t, StoreInfo(norm("quero um carro")))
}

func TestOutOfScope(t *testing.T) {
	assert.True(t, OutOfScope(norm("voces fazem emprestimo pessoal?"), false))
	assert.False(t, OutOfScope(norm("quero trocar meu carro, nada de imovel"), false), "vehicle word anchors the domain")
	assert.False(t, OutOfScope(norm("tem iphone?"), true), "extracted vehicle signal wins")
	assert.False(t, OutOfScope(norm("bom dia"), false))
}

func TestIntentInference(t *testing.T) {
	assert.Equal(t, model.IntentNegotiate, Intent(norm("tá muito caro, dá pra negociar?")))
	assert.Equal(t, model.IntentVisit, Intent(norm("queria agendar um test drive")))
	assert.Equal(t, model.IntentCompare, Intent(norm("qual o melhor entre os dois?")))
	assert.Equal(t, model.Intent(""), Intent(norm("ok")))
}
