// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	attendancefeature "github.com/dalemusser/rosterhub/internal/app/features/attendance"
	childrenfeature "github.com/dalemusser/rosterhub/internal/app/features/children"
	classesfeature "github.com/dalemusser/rosterhub/internal/app/features/classes"
	healthfeature "github.com/dalemusser/rosterhub/internal/app/features/health"
	homeworkfeature "github.com/dalemusser/rosterhub/internal/app/features/homework"
	sessionfeature "github.com/dalemusser/rosterhub/internal/app/features/session"
	studentsfeature "github.com/dalemusser/rosterhub/internal/app/features/students"
	"github.com/dalemusser/rosterhub/internal/app/reconcile"
	"github.com/dalemusser/rosterhub/internal/app/roster"
	accountstore "github.com/dalemusser/rosterhub/internal/app/store/accounts"
	classstore "github.com/dalemusser/rosterhub/internal/app/store/classes"
	studentstore "github.com/dalemusser/rosterhub/internal/app/store/students"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/notify"
	"github.com/dalemusser/rosterhub/internal/app/system/ratelimit"
	"github.com/dalemusser/rosterhub/internal/domain/models"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It wires the shared collaborators (identity
// verifier, reconciliation engine, roster maintainer, notifier) and mounts
// the feature routers behind the role middleware each surface requires.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	verifier := auth.NewVerifier(appCfg.IdentityJWTKey, appCfg.IdentityIssuer, logger)
	engine := reconcile.New(db, logger)
	maintainer := roster.New(db, logger)

	var notifier notify.Notifier = notify.Nop{}
	if deps.RedisClient != nil {
		notifier = notify.NewRedis(deps.RedisClient, logger)
	}

	accounts := accountstore.New(db)
	classes := classstore.New(db)
	students := studentstore.New(db)

	r := chi.NewRouter()

	// Global identity middleware: loads the verified identity into context.
	// Per-route middleware decides whether an identity is required.
	r.Use(verifier.LoadIdentity)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Session start: any verified identity. Rate limited per client IP
	// because every start runs a reconciliation pass.
	sessionLimiter := ratelimit.New(30, time.Minute)
	sessionHandler := sessionfeature.NewHandler(engine, accounts, logger)
	r.Group(func(r chi.Router) {
		r.Use(sessionLimiter.Middleware)
		r.Use(auth.RequireVerified)
		r.Mount("/session", sessionfeature.Routes(sessionHandler))
	})

	// Teacher surfaces.
	classesHandler := classesfeature.NewHandler(maintainer, classes, logger)
	studentsHandler := studentsfeature.NewHandler(maintainer, students, classes, logger)
	homeworkHandler := homeworkfeature.NewHandler(db, notifier, logger)
	attendanceHandler := attendancefeature.NewHandler(db, logger)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireVerified)
		r.Use(auth.RequireRole(models.RoleTeacher))

		r.Mount("/classes", classesfeature.Routes(classesHandler,
			studentsfeature.ClassRoutes(studentsHandler)))
		r.Mount("/students", studentsfeature.Routes(studentsHandler,
			homeworkfeature.StudentRoutes(homeworkHandler),
			attendancefeature.StudentRoutes(attendanceHandler)))
		r.Mount("/homework", homeworkfeature.Routes(homeworkHandler))
	})

	// Guardian surface.
	childrenHandler := childrenfeature.NewHandler(db, logger)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireVerified)
		r.Use(auth.RequireRole(models.RoleGuardian))
		r.Mount("/children", childrenfeature.Routes(childrenHandler))
	})

	return r, nil
}
