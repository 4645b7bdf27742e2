package router

import (
	"github.com/oksasatya/fluxo-backend/internal/application"
	"github.com/oksasatya/fluxo-backend/internal/application/quota"
	"github.com/oksasatya/fluxo-backend/internal/application/verification"
	"github.com/oksasatya/fluxo-backend/internal/container"
	handlers "github.com/oksasatya/fluxo-backend/internal/interface/http"
	"github.com/oksasatya/fluxo-backend/internal/router/modules"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

type UserModuleDeps struct {
	Service     *application.Service
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
}

type PromptModuleDeps struct {
	Service *application.PromptService
	Handler *handlers.PromptHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	store := container.GetStore()
	logger := container.GetLogger()

	ledger := container.GetVerificationLedger()
	if ledger == nil {
		ledger = verification.NewLedger(
			store,
			store.Users(),
			container.GetClock(),
			helpers.DigitCodeGenerator{},
			container.GetNotifier(),
			verification.Config{
				CodeTTL:       cfg.VerifyCodeTTL,
				ResendWindow:  cfg.VerifyResendWindow,
				ResendMax:     cfg.VerifyResendMax,
				NotifyTimeout: cfg.NotifyTimeout,
			},
			logger,
		)
		container.SetVerificationLedger(ledger)
	}

	service := &application.Service{
		Repo:              store.Users(),
		Verification:      ledger,
		Notifier:          container.GetNotifier(),
		JWT:               container.GetJWT(),
		GCS:               container.GetGCS(),
		GCSBucket:         cfg.GCSBucket,
		Redis:             container.GetRedis(),
		Logger:            logger,
		DefaultDailyLimit: cfg.QuotaDefaultDailyLimit,
		SessionTTL:        cfg.SessionTTL,
		NotifyTimeout:     cfg.NotifyTimeout,
	}

	return UserModuleDeps{
		Service:     service,
		AuthHandler: handlers.NewAuthHandler(service, logger, cfg.CookieDomain, cfg.CookieSecure),
		UserHandler: handlers.NewUserHandler(service, logger),
	}
}

func buildPromptDeps() PromptModuleDeps {
	cfg := container.GetConfig()
	store := container.GetStore()
	logger := container.GetLogger()

	ledger := quota.NewLedger(store, container.GetClock(), quota.Config{ReservationTTL: cfg.QuotaReservationTTL}, logger)
	service := &application.PromptService{
		Prompts:   store.Prompts(),
		Quota:     ledger,
		Generator: container.GetGenerator(),
		Redis:     container.GetRedis(),
		ES:        container.GetES(),
		ESIndex:   cfg.ESPromptsIndex,
		Logger:    logger,
	}
	return PromptModuleDeps{Service: service, Handler: handlers.NewPromptHandler(service, logger)}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	userDeps := buildUserDeps()
	promptDeps := buildPromptDeps()
	jwt := container.GetJWT()
	rdb := container.GetRedis()

	r.Add(modules.NewAuthModule(userDeps.AuthHandler, rdb, jwt))
	r.Add(modules.NewUserModule(userDeps.UserHandler, rdb, jwt))
	r.Add(modules.NewPromptModule(promptDeps.Handler, rdb, jwt))
	if cfg := container.GetConfig(); cfg != nil && cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
