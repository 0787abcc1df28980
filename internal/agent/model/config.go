package model

// ================ Config ================

type ConversationConfig struct {
	TTL        string `envconfig:"CONVERSATION_TTL" default:"24h"`
	HistoryMax int    `envconfig:"CONVERSATION_HISTORY_MAX" default:"50"`
}

type CoordinatorConfig struct {
	DebounceWindow string `envconfig:"TURN_DEBOUNCE_WINDOW" default:"2s"`
	DedupTTL       string `envconfig:"TURN_DEDUP_TTL" default:"20m"`
	DedupMax       int    `envconfig:"TURN_DEDUP_MAX" default:"5000"`
}

type StoreInfoConfig struct {
	Name    string `envconfig:"STORE_NAME" default:"AutoPrime Veículos"`
	Address string `envconfig:"STORE_ADDRESS" default:"Av. das Nações 1200, São Paulo"`
	Hours   string `envconfig:"STORE_HOURS" default:"seg-sáb 9h às 18h"`
}
