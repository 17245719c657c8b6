package router

import (
	"database/sql"
	"net/http"
	"os"

	"patient-record-sharing/internal/adapters/directory/memdir"
	mem "patient-record-sharing/internal/adapters/storage/memory"
	pg "patient-record-sharing/internal/adapters/storage/postgres"
	"patient-record-sharing/internal/domain/accessgrants"
	"patient-record-sharing/internal/domain/comments"
	"patient-record-sharing/internal/domain/documents"
	"patient-record-sharing/internal/domain/medications"
	"patient-record-sharing/internal/domain/patients"
	"patient-record-sharing/internal/middleware"
	"patient-record-sharing/internal/platform/logger"
	"patient-record-sharing/internal/ports/auth"
	"patient-record-sharing/internal/ports/directory"
	"patient-record-sharing/internal/ports/notify"

	_ "patient-record-sharing/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcionales: enriquecen grants y empujan notificaciones.
	Directory directory.Directory
	Notifier  notify.Notifier

	Logger logger.Logger
}

// NewRouter arma el handler HTTP completo y devuelve también el service
// de grants para que main corra el sweep de expirados.
func NewRouter(opts Options) (http.Handler, *accessgrants.Service) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler())

	log := opts.Logger
	if log == nil {
		log = logger.NewFromEnv()
	}

	var (
		patientsRepo patients.Repository
		grantsRepo   accessgrants.Repository
		medsRepo     medications.Repository
		commentsRepo comments.Repository
		docsRepo     documents.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("db open failed, falling back to memory", map[string]any{"error": err.Error()})
			}
		}
	}

	if db != nil {
		patientsRepo = pg.NewPatientsRepo(db)
		grantsRepo = pg.NewAccessGrantsRepo(db)
		medsRepo = pg.NewMedicationsRepo(db)
		commentsRepo = pg.NewCommentsRepo(db)
		docsRepo = pg.NewDocumentsRepo(db)
	} else {
		patientsRepo = mem.NewPatientsRepo()
		grantsRepo = mem.NewAccessGrantsRepo()
		medsRepo = mem.NewMedicationsRepo()
		commentsRepo = mem.NewCommentsRepo()
		docsRepo = mem.NewDocumentsRepo()
	}

	// Services por módulo
	// Modo dev sin directorio: memdir sembrable por DEV_DIRECTORY
	// ("user:org,user:org") para que los grants directos funcionen.
	dir := opts.Directory
	if dir == nil && opts.AuthVerifier == nil {
		dir = memdir.FromEnv(os.Getenv("DEV_DIRECTORY"))
	}

	patientsSvc := patients.NewService(patientsRepo)
	grantsSvc := accessgrants.NewService(grantsRepo, patientsSvc)
	if dir != nil {
		grantsSvc = grantsSvc.WithDirectory(dir)
	}
	if opts.Notifier != nil {
		grantsSvc = grantsSvc.WithNotifier(opts.Notifier, log)
	}

	vis := patients.NewVisibilityResolver(patientsSvc, grantsSvc)

	medsSvc := medications.NewService(medsRepo)
	commentsSvc := comments.NewService(commentsRepo)
	docsSvc := documents.NewService(docsRepo)

	// Rutas por módulo
	patients.RegisterRoutes(r, patientsSvc, vis)
	accessgrants.RegisterRoutes(r, grantsSvc)
	medications.RegisterRoutes(r, medsSvc, grantsSvc)
	comments.RegisterRoutes(r, commentsSvc, grantsSvc)
	documents.RegisterRoutes(r, docsSvc, grantsSvc)

	return r, grantsSvc
}
