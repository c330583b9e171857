package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"taskzen-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// authRouteRate limits credential-guessing traffic on the register and
// login routes only; authenticated routes are not rate limited.
const authRouteRate = rate.Limit(20)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc Services, auth Authenticator, google GoogleVerifier, logger *log.Logger) {
	started := time.Now()
	requireAuth := principalMiddleware(svc.Accounts, auth)
	limited := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(authRouteRate))

	root := e.Group("/api")
	root.GET("/health", health(started))

	ag := root.Group("/auth")
	ag.POST("/register", registerUser(svc.Accounts, auth), limited)
	ag.POST("/login", login(svc.Accounts, auth), limited)
	ag.POST("/logout", logout())
	ag.GET("/me", me(), requireAuth)
	ag.POST("/google", googleSignIn(svc.Accounts, auth, google))
	ag.GET("/google/status", googleStatus(google))

	fg := root.Group("/friends", requireAuth)
	fg.GET("/search", searchUsers(svc.Friends))
	fg.POST("/requests", sendFriendRequest(svc.Friends))
	fg.GET("/requests", listFriendRequests(svc.Friends))
	fg.PUT("/requests/:id/accept", acceptFriendRequest(svc.Friends))
	fg.PUT("/requests/:id/reject", rejectFriendRequest(svc.Friends))
	fg.GET("", listFriends(svc.Friends))
	fg.DELETE("/:id", removeFriend(svc.Friends))

	tg := root.Group("/tasks", requireAuth)
	tg.GET("", listTasks(svc.Tasks, logger))
	tg.GET("/assigned", listAssignedTasks(svc.Tasks))
	tg.GET("/search", searchAllTasks(svc.Tasks))
	tg.GET("/completed", taskView(svc.Tasks, domain.ViewCompleted))
	tg.GET("/scheduled", taskView(svc.Tasks, domain.ViewScheduled))
	tg.GET("/flagged", taskView(svc.Tasks, domain.ViewFlagged))
	tg.GET("/today", taskView(svc.Tasks, domain.ViewToday))
	tg.GET("/missed", taskView(svc.Tasks, domain.ViewMissed))
	tg.GET("/:id", getTask(svc.Tasks))
	tg.POST("", createTask(svc.Tasks))
	tg.PUT("/:id", updateTask(svc.Tasks))
	tg.DELETE("/:id", deleteTask(svc.Tasks))
	tg.POST("/:id/assign", assignTask(svc.Tasks))

	root.GET("/dashboard/stats", dashboardStats(svc.Tasks), requireAuth)
}

// decodeBody strictly decodes a JSON request body into dst. Unknown fields
// and oversized bodies are rejected.
func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("Invalid request body")
	}
	return nil
}

type healthPayload struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

func health(started time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		return respond(c, http.StatusOK, healthPayload{
			Status: "ok",
			Uptime: time.Since(started).Seconds(),
		})
	}
}
