package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/learngate/learngate-lms/internal/api/http"
	"github.com/learngate/learngate-lms/internal/attempt"
	"github.com/learngate/learngate-lms/internal/audit"
	auth "github.com/learngate/learngate-lms/internal/auth/middleware"
	"github.com/learngate/learngate-lms/internal/config"
	"github.com/learngate/learngate-lms/internal/db"
	"github.com/learngate/learngate-lms/internal/gate"
	"github.com/learngate/learngate-lms/internal/grades"
	"github.com/learngate/learngate-lms/internal/lesson"
	"github.com/learngate/learngate-lms/internal/quiz"
	"github.com/learngate/learngate-lms/internal/rbac"
	"github.com/learngate/learngate-lms/internal/remedial"
	"github.com/learngate/learngate-lms/internal/scoring"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Engine wiring ---
	quizzes := quiz.NewSQLStore(dbh)
	lessons := lesson.NewSQLStore(dbh)
	attempts := attempt.NewSQLStore(dbh)
	remedials := remedial.NewSQLStore(dbh)
	rec := audit.NewEventRepo(dbh)

	engine := scoring.NewEngine(scoring.WithPrecision(cfg.ScorePrecision))
	accessGate := gate.New(quizzes, lessons, attempts, rec)
	workflow := remedial.NewWorkflow(remedials, rec,
		time.Duration(cfg.RemedialDueDays)*24*time.Hour)
	attemptSvc := attempt.NewService(quizzes, attempts, accessGate, engine,
		workflow, rec, cfg.SubmitGraceSec, cfg.StrictTiming)
	aggregator := grades.NewAggregator(quizzes, attempts)

	if cfg.SweepEnabled {
		sweeper := attempt.NewSweeper(attempts, rec,
			time.Duration(cfg.SweepIntervalSec)*time.Second, cfg.SubmitGraceSec)
		go sweeper.Run(context.Background())
	}

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh, cfg.AdminUser, cfg.AdminPassHash))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Author surface
		pr.With(rbac.Require("subject:create")).
			Post("/subjects", api.UpsertSubjectHandler(quizzes))
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.UpsertQuizHandler(quizzes))
		pr.With(rbac.Require("lesson:create")).
			Post("/lessons", api.UpsertLessonHandler(lessons))

		// Content
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", api.ListQuizzesHandler(quizzes))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(quizzes))
		pr.With(rbac.Require("lesson:view")).
			Get("/lessons", api.ListLessonsHandler(lessons))

		// Progression
		pr.With(rbac.Require("quiz:access-check")).
			Get("/quizzes/{quizID}/access", api.CheckAccessHandler(accessGate))
		pr.With(rbac.Require("lesson:complete")).
			Post("/lessons/{lessonID}/complete", api.CompleteLessonHandler(lessons))
		pr.With(rbac.RequireAny("lesson:view", "attempt:view-all")).
			Get("/subjects/{subjectID}/progress", api.LessonProgressHandler(lessons))

		// Attempt flow
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.BeginAttemptHandler(attemptSvc))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/responses", api.SaveResponsesHandler(attemptSvc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(attemptSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(attemptSvc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(attemptSvc))
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grading", api.ApplyManualGradesHandler(attemptSvc))

		// Remediation + grades
		pr.With(rbac.RequireAny("remedial:view-own", "remedial:view-all")).
			Get("/remedials", api.ListRemedialsHandler(remedials))
		pr.With(rbac.RequireAny("grades:view-own", "grades:view-all")).
			Get("/grades/subjects/{subjectID}", api.SubjectGradeHandler(aggregator))
		pr.With(rbac.RequireAny("grades:view-own", "grades:view-all")).
			Get("/grades/gwa", api.GWAHandler(aggregator))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
