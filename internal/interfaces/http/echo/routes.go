package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, userHandler *UserHandler, systemHandler *SystemHandler) {
	server.GET("/", systemHandler.Index)
	server.GET("/healthz", systemHandler.Healthz)
	server.GET("/test_db_connection", systemHandler.TestDBConnection)

	server.POST("/upload_users", importHandler.UploadUsers)
	server.GET("/import_jobs/:id", importHandler.GetImportJob)

	server.GET("/users", userHandler.ListUsers)
	server.POST("/update_users_batch", userHandler.UpdateUsersBatch)
}
