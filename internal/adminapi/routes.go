package adminapi

// Init registers all API routes on the web server
func Init() {
	registerAuthRoutes()
	registerContactRoutes()
	registerShopRoutes()
	registerCategoryRoutes()
	registerProductRoutes()
	registerProductInfoRoutes()
	registerParameterRoutes()
	registerProductParameterRoutes()
	registerCartRoutes()
	registerOrderRoutes()
	registerPartnerRoutes()
	registerSystemRoutes()
	registerServerInfoRoutes()
}
