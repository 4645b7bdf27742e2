package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/config"
	"github.com/oksasatya/fluxo-backend/internal/application/verification"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/openrouter"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
	"github.com/oksasatya/fluxo-backend/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

// Store is implemented by the postgres and memory backends.
type Store interface {
	repository.TxManager
	Users() repository.UserRepository
	Verifications() repository.VerificationRepository
	Quotas() repository.QuotaRepository
	Prompts() repository.PromptRepository
}

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	store       Store
	redisClient *redis.Client
	gcsClient   *storage.Client
	clock       helpers.Clock

	jwtManager *helpers.JWTManager

	notifier  *mailer.Notifier
	esClient  *elasticsearch.Client
	generator *openrouter.Client

	verificationLedger *verification.Ledger
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetStore(s Store)             { store = s }
func GetStore() Store              { return store }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetGCS(s *storage.Client)     { gcsClient = s }
func GetGCS() *storage.Client      { return gcsClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }
func SetClock(c helpers.Clock)     { clock = c }
func GetClock() helpers.Clock {
	if clock != nil {
		return clock
	}
	return helpers.NewSystemClock(nil)
}

func SetNotifier(n *mailer.Notifier)    { notifier = n }
func GetNotifier() *mailer.Notifier     { return notifier }
func SetES(c *elasticsearch.Client)     { esClient = c }
func GetES() *elasticsearch.Client      { return esClient }
func SetGenerator(g *openrouter.Client) { generator = g }
func GetGenerator() *openrouter.Client  { return generator }

func SetVerificationLedger(l *verification.Ledger) { verificationLedger = l }
func GetVerificationLedger() *verification.Ledger  { return verificationLedger }
