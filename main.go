package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/dealerflow-core/server/internal/agent"
	"github.com/dealerflow-core/server/internal/agent/model"
	"github.com/dealerflow-core/server/internal/agent/repo"
	"github.com/dealerflow-core/server/internal/agent/turn"
	"github.com/dealerflow-core/server/internal/core"
	logx "github.com/dealerflow-core/server/pkg/logger"
	pkgredis "github.com/dealerflow-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the policy engine demo,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	Environment string `envconfig:"APP_ENV" default:"development"`

	// Engine configs
	Conversation model.ConversationConfig
	Coordinator  model.CoordinatorConfig
	Store        model.StoreInfoConfig
}

// logToolInvoker stands in for the real collaborators: it only logs which
// tool the caller would have to invoke.
type logToolInvoker struct{}

func (logToolInvoker) Invoke(_ context.Context, call agent.ToolCall) error {
	logx.Info().
		Str("component", "tool_invoker").
		Str("tool", string(call.Tool)).
		Str("phone", call.Phone).
		Str("reason", call.Reason).
		Msg("external collaborator invoked")
	return nil
}

func main() {
	fmt.Println("Dealerflow policy engine demo...")
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb := envCfg.Redis.MustNew()
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", envCfg.Conversation.TTL).Msg("invalid CONVERSATION_TTL")
	}
	debounce, err := time.ParseDuration(envCfg.Coordinator.DebounceWindow)
	if err != nil {
		logx.Fatal().Err(err).Str("value", envCfg.Coordinator.DebounceWindow).Msg("invalid TURN_DEBOUNCE_WINDOW")
	}
	dedupTTL, err := time.ParseDuration(envCfg.Coordinator.DedupTTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", envCfg.Coordinator.DedupTTL).Msg("invalid TURN_DEDUP_TTL")
	}

	pipeline := agent.NewPipeline(agent.PipelineConfig{
		States:  repo.NewRedisStateRepository(rdb, ttl),
		FSM:     repo.NewRedisFSMRepository(rdb, ttl),
		Asked:   repo.NewRedisAskedSlotTracker(rdb, ttl),
		History: repo.NewRedisHistoryRepository(rdb, ttl, envCfg.Conversation.HistoryMax),
		Tools:   logToolInvoker{},
		OnOutcome: func(phone string, out agent.TurnOutcome) {
			fmt.Printf("  %s action=%s stage=%s reason=%q\n",
				phone, out.Result.Action, out.Stage.Stage, out.Result.Reason)
			if out.Result.Action == model.ActionInfoStore {
				fmt.Printf("  store info: %s, %s (%s)\n",
					envCfg.Store.Name, envCfg.Store.Address, envCfg.Store.Hours)
			}
		},
	})

	coordinator := turn.NewCoordinator(turn.Config{
		DebounceWindow: debounce,
		DedupTTL:       dedupTTL,
		DedupMax:       envCfg.Coordinator.DedupMax,
	}, pipeline.HandleTurn)
	defer coordinator.Close()

	conversations := map[string][]string{
		"+5511999990001": {
			"oi, bom dia",
			"quero um corolla cross automatico",
			"ate 140 mil, financiado",
		},
		"+5511999990002": {
			"quais carros voces tem entre 50 e 70 mil?",
			"tenho um civic mas quero um corolla na troca",
		},
		"+5511999990003": {
			"qual o endereco de voces?",
			"ok",
			"ta",
		},
	}

	g, _ := errgroup.WithContext(ctx)
	for phone, script := range conversations {
		phone, script := phone, script
		g.Go(func() error {
			for i, text := range script {
				fmt.Printf("\n[%s] message %d: %q\n", phone, i+1, text)
				coordinator.Submit(turn.Message{
					ID:         uuid.NewString(),
					Phone:      phone,
					Text:       text,
					ReceivedAt: time.Now(),
				})
				// let the debounce window close before the next scripted turn
				time.Sleep(debounce + 200*time.Millisecond)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logx.Fatal().Err(err).Msg("demo failed")
	}

	// give the last chained turns time to drain
	time.Sleep(debounce + 500*time.Millisecond)
	fmt.Println("\nAll scripted conversations processed.")
}
