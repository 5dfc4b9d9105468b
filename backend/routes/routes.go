package routes

import (
	"learnhub/backend/config"
	"learnhub/backend/controllers"
	"learnhub/backend/middleware"
	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type Deps struct {
	Repos    *store.Repos
	Registry *progress.Registry
	Cfg      *config.Config
	Log      *utils.Logger
}

func SetupRoutes(app *fiber.App, d Deps) {
	// Auth routes
	authController := controllers.NewAuthController(d.Repos, d.Cfg, d.Log)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(d.Cfg)
	adminMiddleware := middleware.AdminMiddleware()

	api := app.Group("/api", authMiddleware)

	// Profile and subscriptions
	userController := controllers.NewUserController(d.Repos, d.Registry, d.Cfg, d.Log)
	api.Get("/profile", userController.GetProfile)
	api.Put("/profile", userController.UpdateProfile)
	api.Delete("/profile", userController.DeleteProfile)
	api.Get("/plans", userController.ListPlans)
	api.Post("/subscriptions", userController.Subscribe)

	// Progress routes
	progressController := controllers.NewProgressController(d.Repos, d.Registry, d.Cfg, d.Log)
	api.Get("/progress", progressController.GetProgress)
	api.Post("/progress/refresh", progressController.Refresh)
	api.Post("/topics/:id/complete", progressController.CompleteTopic)

	// Catalogue
	coursesController := controllers.NewCoursesController(d.Repos, d.Registry, d.Cfg, d.Log)
	api.Get("/subjects", coursesController.ListSubjects)
	api.Get("/subjects/:id", coursesController.GetSubject)
	api.Get("/subjects/:id/topics", coursesController.ListTopics)
	api.Get("/topics/:id/lessons", coursesController.ListLessons)

	// Quizzes
	testsController := controllers.NewTestsController(d.Repos, d.Registry, d.Cfg, d.Log)
	api.Get("/topics/:id/quizzes", testsController.ListQuizzes)
	api.Post("/topics/:id/quizzes/submit", testsController.SubmitQuiz)

	// Search
	overviewController := controllers.NewOverviewController(d.Repos, d.Cfg, d.Log)
	api.Get("/search", overviewController.Search)

	// Content moderator routes
	analyticsController := controllers.NewAnalyticsController(d.Repos, d.Cfg, d.Log)
	admin := api.Group("/admin", adminMiddleware)
	admin.Post("/subjects", coursesController.CreateSubject)
	admin.Post("/topics", coursesController.CreateTopic)
	admin.Post("/lessons", coursesController.CreateLesson)
	admin.Post("/quizzes", testsController.CreateQuiz)
	admin.Get("/overview", analyticsController.Overview)
}
