package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/user-directory/internal/application/user"
)

const (
	msgUploadAccepted   = "File uploaded successfully. Processing started in background."
	msgInvalidFileType  = "Invalid file type. Please upload an Excel file (.xlsx or .xls)."
	msgNoFilePart       = "No file part in the request"
	msgNoSelectedFile   = "No selected file"
	msgImportJobMissing = "Import job not found"
)

type uploadCounter interface {
	UploadAccepted()
}

type ImportHandler struct {
	startImport app.StartSpreadsheetImport
	getJob      app.GetImportJob
	uploads     uploadCounter
}

func NewImportHandler(startImport app.StartSpreadsheetImport, getJob app.GetImportJob, uploads uploadCounter) *ImportHandler {
	return &ImportHandler{startImport: startImport, getJob: getJob, uploads: uploads}
}

func (h *ImportHandler) UploadUsers(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(msgNoFilePart))
	}
	if header.Filename == "" {
		return c.JSON(http.StatusBadRequest, errorResponse(msgNoSelectedFile))
	}

	src, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse("File upload failed: "+err.Error()))
	}
	defer src.Close()

	out, err := h.startImport.Execute(c.Request().Context(), app.StartSpreadsheetImportInput{
		Filename: header.Filename,
		Content:  src,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoSelectedFile):
			return c.JSON(http.StatusBadRequest, errorResponse(msgNoSelectedFile))
		case errors.Is(err, app.ErrInvalidFileType):
			return c.JSON(http.StatusBadRequest, errorResponse(msgInvalidFileType))
		}
		return c.JSON(http.StatusInternalServerError, errorResponse("File upload failed: "+err.Error()))
	}

	if h.uploads != nil {
		h.uploads.UploadAccepted()
	}

	return c.JSON(http.StatusAccepted, apiResponse{
		Status:  statusSuccess,
		Message: msgUploadAccepted,
		JobID:   out.JobID,
	})
}

func (h *ImportHandler) GetImportJob(c echo.Context) error {
	out, err := h.getJob.Execute(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrImportJobNotFound) || errors.Is(err, app.ErrEmptyJobIdentifier) {
			return c.JSON(http.StatusNotFound, errorResponse(msgImportJobMissing))
		}
		return c.JSON(http.StatusInternalServerError, errorResponse("Failed to fetch import job"))
	}

	return c.JSON(http.StatusOK, apiResponse{Status: statusSuccess, Data: out})
}
