package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/readee-ai/docproc/internal/config"
	"github.com/readee-ai/docproc/internal/handler"
	"github.com/readee-ai/docproc/internal/job"
	"github.com/readee-ai/docproc/internal/llm"
	"github.com/readee-ai/docproc/internal/middleware"
	"github.com/readee-ai/docproc/internal/model"
	"github.com/readee-ai/docproc/internal/moderation"
	"github.com/readee-ai/docproc/internal/ocr"
	"github.com/readee-ai/docproc/internal/pipeline"
	"github.com/readee-ai/docproc/internal/queue"
	"github.com/readee-ai/docproc/internal/schedule"
	"github.com/readee-ai/docproc/internal/spool"
	"github.com/readee-ai/docproc/internal/summary"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docproc",
		Short: "document moderation and summarization service",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docproc server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("spool", cfg.Spool.Type),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)

	store, err := spool.New(cfg.Spool.Type, cfg.Spool.Data)
	if err != nil {
		return fmt.Errorf("init spool store: %w", err)
	}

	var engine ocr.Engine
	if cfg.OCR.Endpoint != "" {
		engine = ocr.NewHTTPEngine(cfg.OCR.Endpoint, time.Duration(cfg.OCR.TimeoutSeconds)*time.Second)
	}
	ocrAdapter := ocr.NewAdapter(engine, cfg.OCR.MinTextLength, cfg.OCR.MaxWorkers)

	mod, err := moderation.NewProvider(cfg.Moderation.Provider, map[string]interface{}{
		"image_endpoint":  cfg.Moderation.ImageEndpoint,
		"text_endpoint":   cfg.Moderation.TextEndpoint,
		"timeout_seconds": cfg.Moderation.TimeoutSeconds,
	})
	if err != nil {
		return fmt.Errorf("init moderation provider: %w", err)
	}

	gen, err := llm.NewGenerator(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.Data)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}
	tok := llm.NewHeuristicTokenizer()

	budgets := summary.Budgets{}
	for name, spec := range cfg.Summary.Budgets {
		budgets[model.Level(name)] = summary.LevelBudget{
			MinTokens: spec.MinTokens,
			MaxTokens: spec.MaxTokens,
			MinPct:    spec.MinPct,
			MaxPct:    spec.MaxPct,
		}
	}
	summarizer, err := summary.New(gen, tok, summary.Options{
		SafeInputTokens:      cfg.Summary.SafeInputTokens,
		PerChunkBudget:       cfg.Summary.PerChunkBudget,
		SmallDirectThreshold: cfg.Summary.SmallDirectThreshold,
		MaxGPUConcurrency:    cfg.LLM.MaxGPUConcurrency,
		Budgets:              budgets,
	})
	if err != nil {
		return fmt.Errorf("init summarizer: %w", err)
	}
	triple := summary.WrapLRUCache(summarizer,
		cfg.Summary.CacheSize,
		time.Duration(cfg.Summary.CacheTTLMinutes)*time.Minute,
	)

	orch := pipeline.New(ocrAdapter, mod, triple, store, pipeline.Options{
		ImageThreshold: cfg.Moderation.ImageThreshold,
		TextThreshold:  cfg.Moderation.TextThreshold,
		ChunkTokens:    cfg.Moderation.ChunkTokens,
	})

	notifier := queue.NewNotifier(cfg.Queue.WebhookSecret)
	manager := queue.NewManager(cfg.Queue.Capacity, func(ctx context.Context, j *model.Job) (*model.PipelineVerdict, error) {
		return orch.Process(ctx, j.FilePath, j.Filename, j.Speed)
	}, notifier)

	retention := time.Duration(cfg.Queue.RetentionHours) * time.Hour
	sched := schedule.NewCronScheduler()
	if err := sched.AddJob(job.NewJobCleanupJob(manager, retention), cfg.Queue.CleanupSpec); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(manager, orch, store, cfg.MaxUploadBytes),
		Jobs:      handler.NewJobHandler(manager),
		APIKey:    cfg.APIKey,
	}

	webEngine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The worker gets a background context so an in-flight job survives the
	// shutdown signal; Stop drains it via the sentinel below.
	manager.Start(context.Background())
	sched.Start(ctx)

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := webEngine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")

	sched.Stop()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Stop(stopCtx); err != nil {
		logutil.GetLogger(context.Background()).Warn("queue worker did not drain in time", zap.Error(err))
	}
	return nil
}
