// Package router assembles the gin engine of the campaign API.
package router

import (
	"net/http"

	"github.com/cnec/backend/internal/infrastructure/auth"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/internal/infrastructure/logger"
	"github.com/cnec/backend/internal/interfaces/http/dto"
	"github.com/cnec/backend/internal/interfaces/http/handler"
	"github.com/cnec/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup is a route group with its own middleware and subgroups
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Config holds what the engine needs besides the handlers
type Config struct {
	ServiceName    string
	HTTP           config.HTTPConfig
	TracingEnabled bool
	// Meter records HTTP metrics; nil disables them
	Meter  metric.Meter
	Tokens middleware.TokenValidator
	Logger *zap.Logger
}

// Handlers are the endpoint handlers mounted on the engine
type Handlers struct {
	Campaign *handler.CampaignHandler
	Points   *handler.PointsHandler
	Company  *handler.CompanyHandler
	Health   *handler.HealthHandler
}

// NewEngine builds the gin engine with the global middleware chain, the
// health checks and every /api/v1 route. A wrong method on a known path
// answers 405 and an unknown path 404, both with the JSON envelope.
func NewEngine(cfg Config, h Handlers) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		cfg.Logger.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(cfg.Meter),
		middleware.Secure(),
		middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}

	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeMethodNotAllowed, "Method "+c.Request.Method+" is not allowed on this route", middleware.GetRequestID(c)))
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.Health.Live)
	engine.GET("/health/ready", h.Health.Ready)

	r := NewRouter(engine)
	for _, g := range apiGroups(cfg.Tokens, h) {
		r.Register(g)
	}
	r.Setup()
	return engine
}

// apiGroups declares the /api/v1 routes. Company routes admit admins too;
// the handlers restrict company callers to their own company.
func apiGroups(tokens middleware.TokenValidator, h Handlers) []*DomainGroup {
	authenticated := []gin.HandlerFunc{
		middleware.Authenticate(tokens),
		middleware.RequireRole(auth.RoleAdmin, auth.RoleCompany),
	}

	campaigns := NewDomainGroup("campaigns", "/campaigns").Use(authenticated...).
		POST("/submit", h.Campaign.Submit)

	points := NewDomainGroup("points", "/points").Use(authenticated...).
		POST("/charge-requests", h.Points.CreateChargeRequest).
		POST("/charge-requests/cancel", h.Points.CancelChargeRequest).
		GET("/companies/:id", h.Points.GetCompanyPoints).
		GET("/companies/:id/charge-requests", h.Points.ListChargeRequests)

	admin := NewDomainGroup("admin", "/admin").Use(middleware.Authenticate(tokens), middleware.RequireAdmin())
	admin.Group("admin-campaigns", "/campaigns").
		GET("", h.Campaign.ListByOwner).
		POST("/approve", h.Campaign.Approve).
		POST("/confirm-payment", h.Campaign.ConfirmPayment).
		POST("/complete", h.Campaign.Complete).
		POST("/cancel", h.Campaign.Cancel).
		POST("/override-status", h.Campaign.OverrideStatus).
		POST("/bulk-approve", h.Campaign.BulkApprove).
		POST("/activation-notification", h.Campaign.SendActivationNotification).
		POST("/transfer", h.Campaign.Transfer)
	admin.Group("admin-points", "/points").
		POST("/charge-requests/confirm", h.Points.ConfirmChargeRequest).
		POST("/adjust", h.Points.AdjustPoints)
	admin.Group("admin-companies", "/companies").
		POST("/approve", h.Company.Approve)

	return []*DomainGroup{campaigns, points, admin}
}
