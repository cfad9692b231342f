package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourflorist/storefront/api/controllers"
	"github.com/yourflorist/storefront/api/middleware"
	"github.com/yourflorist/storefront/pkg/config"
	"github.com/yourflorist/storefront/pkg/logger"
	"github.com/yourflorist/storefront/pkg/metrics"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	KVPinger    controllers.Pinger
	DBPinger    controllers.Pinger
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Catalog     controllers.CatalogService
	Bouquets    controllers.BouquetService
	Cart        controllers.CartService
	Customize   controllers.CustomizationService
	Auth        controllers.AuthService
	Checkout    controllers.CheckoutService
}

// NewRouter assembles the storefront API.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.KVPinger, deps.DBPinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", controllers.CreateSession(cfg.Session, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
			r.Get("/products/{id}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/bouquets/active", controllers.CatalogBouquets(deps.Catalog, logg))
			r.Get("/bouquets/{id}", controllers.CatalogBouquet(deps.Bouquets, logg))
			r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
		})

		// Everything below acts on per-session state.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Session, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartView(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, deps.Catalog, logg))
				r.Put("/items/{productId}", controllers.CartSetQuantity(deps.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/promotion", controllers.CartApplyPromotion(deps.Cart, logg))
				r.Delete("/promotion", controllers.CartClearPromotion(deps.Cart, logg))
			})

			r.Route("/customize/{bouquetId}", func(r chi.Router) {
				r.Post("/", controllers.CustomizeStart(deps.Customize, logg))
				r.Get("/", controllers.CustomizeGet(deps.Customize, logg))
				r.Post("/adjust", controllers.CustomizeAdjust(deps.Customize, logg))
				r.Post("/add-to-cart", controllers.CustomizeAddToCart(deps.Customize, deps.Cart, logg))
				r.Delete("/", controllers.CustomizeDiscard(deps.Customize, logg))
			})

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
				r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
				r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
				r.Put("/me", controllers.AuthUpdateProfile(deps.Auth, logg))
				r.Put("/password", controllers.AuthChangePassword(deps.Auth, logg))
				r.Post("/reset-password/request", controllers.AuthRequestPasswordReset(deps.Auth, logg))
				r.Post("/reset-password/confirm", controllers.AuthConfirmPasswordReset(deps.Auth, logg))
			})

			r.Post("/checkout", controllers.CheckoutPlaceOrder(deps.Checkout, logg))
			r.Get("/orders", controllers.OrdersList(deps.Checkout, logg))
			r.Get("/orders/{id}", controllers.OrderDetail(deps.Checkout, logg))
		})
	})

	return r
}
