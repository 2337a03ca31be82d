package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/toonface/internal/api/handlers"
	"github.com/your-org/toonface/internal/api/ws"
	"github.com/your-org/toonface/internal/auth"
	"github.com/your-org/toonface/internal/queue"
	"github.com/your-org/toonface/internal/storage"
)

type RouterConfig struct {
	DB             *storage.PostgresStore
	MinIO          *storage.MinIOStore
	Producer       *queue.Producer
	Hub            *ws.Hub
	Lifecycle      handlers.Lifecycle
	MaxUploadBytes int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no device header)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/", systemH.Root)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Blob serving — public URLs are {baseUrl}/{category}/{filename}
	filesH := handlers.NewFilesHandler(cfg.MinIO)
	r.GET("/uploads/:category/:filename", filesH.Get)

	// Device-scoped API
	api := r.Group("/api")
	api.Use(auth.DeviceMiddleware())

	// Asset lifecycle
	assetH := handlers.NewAssetHandler(cfg.Lifecycle, cfg.MaxUploadBytes)
	api.POST("/upload", assetH.Upload)
	api.POST("/regenerate/:originalId", assetH.Regenerate)
	api.POST("/download/:cartoonId", assetH.Download)

	// Catalog
	catalogH := handlers.NewCatalogHandler(cfg.DB)
	api.GET("/originals", catalogH.ListOriginals)
	api.GET("/cartoons", catalogH.ListCartoons)
	api.GET("/downloaded-faces", catalogH.ListDownloadedFaces)

	// Live asset events
	api.GET("/ws", cfg.Hub.HandleWS)

	return r
}
