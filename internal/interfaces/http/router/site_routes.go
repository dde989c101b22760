package router

import (
	"github.com/catalogsite/backend/internal/interfaces/http/handler"
	"github.com/catalogsite/backend/internal/interfaces/http/middleware"
)

// SiteHandlers are the handlers mounted by SiteRoutes
type SiteHandlers struct {
	SiteData *handler.SiteDataHandler
	Inquiry  *handler.InquiryHandler
	Health   *handler.HealthHandler
}

// BodyLimits are the request body caps of the JSON routes and of the upload route
type BodyLimits struct {
	JSON   int64
	Upload int64
}

// SiteRoutes builds the route groups of the site data API:
//
//	GET    /health
//	GET    /site-data                  PUT /site-data
//	PATCH  /site-data/:section         POST /site-data/upload
//	GET    /site-data/report           POST /site-data/repair
//	GET    /site-data/products         POST /site-data/products
//	POST   /site-data/products/batch
//	GET    /site-data/products/:id     PATCH, DELETE /site-data/products/:id
//	GET    /inquiries                  POST /inquiries
//	PATCH  /inquiries/:id
func SiteRoutes(h SiteHandlers, limits BodyLimits) []RouteRegistrar {
	jsonLimit := middleware.BodyLimit(limits.JSON)

	health := NewDomainGroup("health", "/health")
	health.GET("", h.Health.Health)

	siteData := NewDomainGroup("site-data", "/site-data")
	siteData.GET("", h.SiteData.GetDocument)
	siteData.PUT("", jsonLimit, h.SiteData.ReplaceDocument)
	siteData.PATCH("/:section", jsonLimit, h.SiteData.PatchSection)
	siteData.POST("/upload", middleware.BodyLimit(limits.Upload), h.SiteData.UploadDocument)
	siteData.GET("/report", h.SiteData.Report)
	siteData.POST("/repair", h.SiteData.Repair)

	products := siteData.Group("products", "/products")
	products.GET("", h.SiteData.ListProducts)
	products.POST("", jsonLimit, h.SiteData.UpsertProduct)
	products.POST("/batch", jsonLimit, h.SiteData.BatchUpsertProducts)
	products.GET("/:id", h.SiteData.GetProduct)
	products.PATCH("/:id", jsonLimit, h.SiteData.PatchProduct)
	products.DELETE("/:id", h.SiteData.DeleteProduct)

	inquiries := NewDomainGroup("inquiries", "/inquiries")
	inquiries.GET("", h.Inquiry.List)
	inquiries.POST("", jsonLimit, h.Inquiry.Create)
	inquiries.PATCH("/:id", jsonLimit, h.Inquiry.UpdateStatus)

	return []RouteRegistrar{health, siteData, inquiries}
}
