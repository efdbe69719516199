package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/export"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/students"
	"github.com/labstack/echo/v4"
)

// StudentHandler handles student records, documents, attendance and exports.
type StudentHandler struct {
	students  *students.Service
	export    *export.Service
	validator *validator.Validate
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(studentsSvc *students.Service, exportSvc *export.Service) *StudentHandler {
	return &StudentHandler{students: studentsSvc, export: exportSvc, validator: validator.New()}
}

// Create godoc
// @Summary Create a student
// @Description The institutional email is generated from the name when omitted
// @Tags Students
// @Accept json
// @Produce json
// @Param request body models.CreateStudentRequest true "Student"
// @Success 200 {object} models.Student
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students [post]
func (h *StudentHandler) Create(c echo.Context) error {
	var req models.CreateStudentRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	st, err := h.students.Create(ctx, req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Success 200 {array} models.Student
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	list, err := h.students.List(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary Get a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} models.Student
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	st, err := h.students.Get(ctx, c.Param("id"))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body models.UpdateStudentRequest true "Changes"
// @Success 200 {object} models.Student
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c echo.Context) error {
	var req models.UpdateStudentRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	st, err := h.students.Update(ctx, c.Param("id"), req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Delete godoc
// @Summary Delete a student
// @Description Stored documents are deleted too
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.students.Delete(ctx, c.Param("id")); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Estudiante eliminado"})
}

// UploadDocument godoc
// @Summary Upload a student document
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param file formData file true "Document"
// @Param document_type formData string false "Document name"
// @Success 200 {object} models.StudentDocument
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id}/documents [post]
func (h *StudentHandler) UploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apierrors.BadRequest(c, students.MsgFileRequired)
	}
	if fh.Size > students.MaxDocumentSize {
		return apierrors.BadRequest(c, students.MsgFileTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	defer f.Close()

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	doc, err := h.students.UploadDocument(ctx, c.Param("id"), students.Upload{
		Name:        c.FormValue("document_type"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteDocument godoc
// @Summary Delete a student document
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param doc_id path string true "Document ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id}/documents/{doc_id} [delete]
func (h *StudentHandler) DeleteDocument(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	if err := h.students.DeleteDocument(ctx, c.Param("id"), c.Param("doc_id")); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Documento eliminado"})
}

// DownloadDocument godoc
// @Summary Download a student document
// @Tags Students
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Param doc_id path string true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id}/documents/{doc_id}/download [get]
func (h *StudentHandler) DownloadDocument(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	doc, rc, err := h.students.OpenDocument(ctx, c.Param("id"), c.Param("doc_id"))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	defer rc.Close()

	name := doc.OriginalFilename
	if name == "" {
		name = doc.Filename
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	if doc.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(doc.Size, 10))
	}
	return c.Stream(http.StatusOK, doc.ContentType, rc)
}

// RecordAttendance godoc
// @Summary Record attendance
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body models.RecordAttendanceRequest true "Attendance"
// @Success 200 {object} models.AttendanceRecord
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id}/attendance [post]
func (h *StudentHandler) RecordAttendance(c echo.Context) error {
	var req models.RecordAttendanceRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, MsgInvalidBody)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	rec, err := h.students.RecordAttendance(ctx, c.Param("id"), req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ExportExcel godoc
// @Summary Export students to Excel
// @Tags Students
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/export/excel [get]
func (h *StudentHandler) ExportExcel(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	var buf bytes.Buffer
	file, err := h.export.Excel(ctx, &buf)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return sendFile(c, file, buf.Bytes())
}

// ExportPDF godoc
// @Summary Export students to PDF
// @Tags Students
// @Produce application/pdf
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/export/pdf [get]
func (h *StudentHandler) ExportPDF(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	var buf bytes.Buffer
	file, err := h.export.PDF(ctx, &buf)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return sendFile(c, file, buf.Bytes())
}

func sendFile(c echo.Context, file *export.File, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", file.Filename))
	return c.Blob(http.StatusOK, file.ContentType, body)
}
