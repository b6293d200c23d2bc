package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	capabilityx "github.com/tanpawarit/aura-supervisor/agent/capability"
	classifierx "github.com/tanpawarit/aura-supervisor/agent/classifier"
	ledgerx "github.com/tanpawarit/aura-supervisor/agent/ledger"
	llmx "github.com/tanpawarit/aura-supervisor/agent/llm"
	orchx "github.com/tanpawarit/aura-supervisor/agent/orchestrator"
	procedurex "github.com/tanpawarit/aura-supervisor/agent/procedure"
	promptx "github.com/tanpawarit/aura-supervisor/agent/prompt"
	statex "github.com/tanpawarit/aura-supervisor/agent/state"
	storex "github.com/tanpawarit/aura-supervisor/agent/store"
	summarizerx "github.com/tanpawarit/aura-supervisor/agent/summarizer"
	configx "github.com/tanpawarit/aura-supervisor/pkg/config"
	groqx "github.com/tanpawarit/aura-supervisor/pkg/groq"
	logx "github.com/tanpawarit/aura-supervisor/pkg/logger"
	serverx "github.com/tanpawarit/aura-supervisor/server"
)

func main() {
	syncProcedures := flag.Bool("sync-procedures", false, "sync warehouse procedures into the local cache and exit")
	flag.Parse()

	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	llmCfg := configx.MustNew[llmx.Config]("GROQ")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid model config")
	}

	storeCfg := configx.MustNew[storex.Config]("STORE")
	db, err := storex.Open(*storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	defer db.Close()

	ctx := context.Background()
	if err := storex.Migrate(ctx, db,
		(*statex.Session)(nil),
		(*ledgerx.Interaction)(nil),
		(*procedurex.CachedProcedure)(nil),
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate local store")
	}

	warehouseCfg := configx.MustNew[procedurex.WarehouseConfig]("WAREHOUSE")
	warehouse, err := procedurex.NewWarehouse(*warehouseCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to warehouse")
	}
	defer warehouse.Close()

	cache := procedurex.NewCache(db)

	if *syncProcedures {
		count, err := procedurex.Sync(ctx, warehouse, cache)
		if err != nil {
			log.Fatal().Err(err).Msg("procedure sync failed")
		}
		log.Info().Int("count", count).Msg("procedure sync complete")
		return
	}

	resolver, err := procedurex.NewChainResolver(warehouse, cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build procedure resolver")
	}

	prompts := promptx.LoadPromptSet()

	classifierGroq := llmCfg.GroqFor(llmx.RoleClassifier)
	classifierModel, err := classifierGroq.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build classifier model")
	}
	classifier, err := classifierx.New(ctx, classifierModel, prompts.Classifier)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build classifier")
	}

	summarizerGroq := llmCfg.GroqFor(llmx.RoleSummarizer)
	summarizerModel, err := summarizerGroq.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build summarizer model")
	}
	summarizer, err := summarizerx.New(ctx, summarizerModel, prompts.Summarizer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build summarizer")
	}

	capCfg := configx.MustNew[capabilityx.Config]("CAPABILITY")
	identifier, err := capabilityx.NewIdentifier(*capCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build identify client")
	}
	annotator, err := capabilityx.NewAnnotator(*capCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build annotate client")
	}

	visionCfg := llmCfg.GroqFor(llmx.RoleVision)
	describer, err := capabilityx.NewDescriber(groqx.NewClient(visionCfg), visionCfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build describe client")
	}

	orchCfg := configx.MustNew[orchx.Config]("ORCHESTRATOR")
	var reasoner *orchx.ReasoningModel
	if orchCfg.Strategy == orchx.StrategyReasoning {
		reasonerGroq := llmCfg.GroqFor(llmx.RoleReasoner)
		reasonerModel, err := reasonerGroq.New(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build reasoner model")
		}
		reasoner = &orchx.ReasoningModel{Model: reasonerModel, SystemPrompt: prompts.Reasoner}
	}

	sessions := statex.NewSQLStore(db)
	ledger := ledgerx.NewSQLLedger(db)

	orchestrator, err := orchx.New(
		sessions,
		ledger,
		classifier,
		summarizer,
		identifier,
		describer,
		annotator,
		resolver,
		reasoner,
		*orchCfg,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	router := serverx.NewRouter(orchestrator, sessions, ledger, *serverCfg)

	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverCfg.Addr).Str("strategy", string(orchCfg.Strategy)).Msg("aura supervisor listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("aura supervisor stopped")
}
