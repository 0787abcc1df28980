package extract

import "sort"

// Vocabulary carries every market-specific table the extractor needs.
// Locale variants are configuration, not forked code: build a different
// Vocabulary and the extractor behaves for that market.
type Vocabulary struct {
	// Models maps canonical model name to brand. Matching is done on the
	// normalized key at word boundaries, longest name first.
	Models map[string]string
	// Brands are direct brand keywords; aliases map to the canonical name.
	Brands map[string]string
	// Typos maps common misspellings to canonical model names. Applied to
	// the normalized text before any model lookup.
	Typos map[string]string
	// Categories maps category synonyms to the canonical category.
	Categories map[string]string
	// Colors maps color words to the canonical color.
	Colors map[string]string
	// sortedModels caches model names in descending length order.
	sortedModels []string
}

// DefaultVocabulary returns the Brazilian-market tables.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		Models: map[string]string{
			"corolla cross":  "toyota",
			"corolla":        "toyota",
			"hilux":          "toyota",
			"yaris":          "toyota",
			"etios":          "toyota",
			"sw4":            "toyota",
			"civic":          "honda",
			"city":           "honda",
			"fit":            "honda",
			"hr-v":           "honda",
			"wr-v":           "honda",
			"onix plus":      "chevrolet",
			"onix":           "chevrolet",
			"tracker":        "chevrolet",
			"cruze":          "chevrolet",
			"spin":           "chevrolet",
			"s10":            "chevrolet",
			"montana":        "chevrolet",
			"cobalt":         "chevrolet",
			"prisma":         "chevrolet",
			"celta":          "chevrolet",
			"polo track":     "volkswagen",
			"polo":           "volkswagen",
			"gol":            "volkswagen",
			"voyage":         "volkswagen",
			"virtus":         "volkswagen",
			"nivus":          "volkswagen",
			"t-cross":        "volkswagen",
			"taos":           "volkswagen",
			"tiguan":         "volkswagen",
			"jetta":          "volkswagen",
			"amarok":         "volkswagen",
			"saveiro":        "volkswagen",
			"fox":            "volkswagen",
			"strada":         "fiat",
			"toro":           "fiat",
			"argo":           "fiat",
			"mobi":           "fiat",
			"cronos":         "fiat",
			"pulse":          "fiat",
			"fastback":       "fiat",
			"uno":            "fiat",
			"palio":          "fiat",
			"fiorino":        "fiat",
			"ka":             "ford",
			"fiesta":         "ford",
			"ecosport":       "ford",
			"ranger":         "ford",
			"territory":      "ford",
			"hb20s":          "hyundai",
			"hb20":           "hyundai",
			"creta":          "hyundai",
			"tucson":         "hyundai",
			"ix35":           "hyundai",
			"santa fe":       "hyundai",
			"kwid":           "renault",
			"sandero":        "renault",
			"logan":          "renault",
			"duster":         "renault",
			"captur":         "renault",
			"oroch":          "renault",
			"stepway":        "renault",
			"kicks":          "nissan",
			"versa":          "nissan",
			"sentra":         "nissan",
			"frontier":       "nissan",
			"march":          "nissan",
			"renegade":       "jeep",
			"compass":        "jeep",
			"commander":      "jeep",
			"cerato":         "kia",
			"sportage":       "kia",
			"seltos":         "kia",
			"picanto":        "kia",
			"l200":           "mitsubishi",
			"pajero":         "mitsubishi",
			"outlander":      "mitsubishi",
			"asx":            "mitsubishi",
			"c3":             "citroen",
			"c4 cactus":      "citroen",
			"corolla hybrid": "toyota",
		},
		Brands: map[string]string{
			"toyota":     "toyota",
			"honda":      "honda",
			"chevrolet":  "chevrolet",
			"gm":         "chevrolet",
			"volkswagen": "volkswagen",
			"vw":         "volkswagen",
			"volks":      "volkswagen",
			"fiat":       "fiat",
			"ford":       "ford",
			"hyundai":    "hyundai",
			"renault":    "renault",
			"nissan":     "nissan",
			"jeep":       "jeep",
			"kia":        "kia",
			"mitsubishi": "mitsubishi",
			"peugeot":    "peugeot",
			"citroen":    "citroen",
		},
		Typos: map[string]string{
			"corola":        "corolla",
			"corrola":       "corolla",
			"corolla-cross": "corolla cross",
			"hylux":         "hilux",
			"rilux":         "hilux",
			"civc":          "civic",
			"civique":       "civic",
			"onyx":          "onix",
			"hb 20":         "hb20",
			"tcross":        "t-cross",
			"t cross":       "t-cross",
			"hrv":           "hr-v",
			"wrv":           "wr-v",
			"renegad":       "renegade",
			"compas":        "compass",
			"sandeiro":      "sandero",
			"amarock":       "amarok",
			"stradda":       "strada",
			"kwide":         "kwid",
		},
		Categories: map[string]string{
			"suv":         "suv",
			"suvs":        "suv",
			"sedan":       "sedan",
			"seda":        "sedan",
			"sedans":      "sedan",
			"hatch":       "hatch",
			"hatchback":   "hatch",
			"picape":      "picape",
			"picapes":     "picape",
			"pickup":      "picape",
			"pick-up":     "picape",
			"caminhonete": "picape",
			"utilitario":  "utilitario",
			"van":         "utilitario",
			"furgao":      "utilitario",
		},
		Colors: map[string]string{
			"branco":   "branco",
			"branca":   "branco",
			"preto":    "preto",
			"preta":    "preto",
			"prata":    "prata",
			"cinza":    "cinza",
			"grafite":  "cinza",
			"vermelho": "vermelho",
			"vermelha": "vermelho",
			"azul":     "azul",
			"verde":    "verde",
			"amarelo":  "amarelo",
			"amarela":  "amarelo",
			"marrom":   "marrom",
			"bege":     "bege",
			"vinho":    "vinho",
			"dourado":  "dourado",
		},
	}
	return v
}

// ModelsByLength returns model names sorted by descending length so the
// longest candidate wins ("corolla cross" before "corolla"). Ties break
// lexicographically for determinism.
func (v *Vocabulary) ModelsByLength() []string {
	if v.sortedModels != nil {
		return v.sortedModels
	}
	names := make([]string, 0, len(v.Models))
	for name := range v.Models {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	v.sortedModels = names
	return names
}

// BrandOf resolves the brand for a canonical model name.
func (v *Vocabulary) BrandOf(model string) string {
	return v.Models[model]
}
