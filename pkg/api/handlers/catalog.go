package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	"github.com/jordanlanch/campusflow/pkg/careers"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/teachers"
	"github.com/labstack/echo/v4"
)

// CatalogHandler serves the teacher and career catalogs.
type CatalogHandler struct {
	teachers  *teachers.Service
	careers   *careers.Service
	validator *validator.Validate
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(teachersSvc *teachers.Service, careersSvc *careers.Service) *CatalogHandler {
	return &CatalogHandler{teachers: teachersSvc, careers: careersSvc, validator: validator.New()}
}

// CreateTeacher godoc
// @Summary Create a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param request body models.CreateTeacherRequest true "Teacher"
// @Success 200 {object} models.Teacher
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /teachers [post]
func (h *CatalogHandler) CreateTeacher(c echo.Context) error {
	var req models.CreateTeacherRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	t, err := h.teachers.Create(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Success 200 {array} models.Teacher
// @Security BearerAuth
// @Router /teachers [get]
func (h *CatalogHandler) ListTeachers(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	list, err := h.teachers.List(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetTeacher godoc
// @Summary Get a teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} models.Teacher
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /teachers/{id} [get]
func (h *CatalogHandler) GetTeacher(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	t, err := h.teachers.Get(ctx, c.Param("id"))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// UpdateTeacher godoc
// @Summary Update a teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param request body models.UpdateTeacherRequest true "Changes"
// @Success 200 {object} models.Teacher
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /teachers/{id} [put]
func (h *CatalogHandler) UpdateTeacher(c echo.Context) error {
	var req models.UpdateTeacherRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	t, err := h.teachers.Update(ctx, c.Param("id"), req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTeacher godoc
// @Summary Delete a teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /teachers/{id} [delete]
func (h *CatalogHandler) DeleteTeacher(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.teachers.Delete(ctx, c.Param("id")); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Maestro eliminado"})
}

// CreateCareer godoc
// @Summary Create a career
// @Tags Careers
// @Accept json
// @Produce json
// @Param request body models.CreateCareerRequest true "Career"
// @Success 200 {object} models.Career
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /careers/full [post]
func (h *CatalogHandler) CreateCareer(c echo.Context) error {
	var req models.CreateCareerRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	career, err := h.careers.Create(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, career)
}

// ListCareers godoc
// @Summary List careers with schedules
// @Tags Careers
// @Produce json
// @Success 200 {array} models.Career
// @Security BearerAuth
// @Router /careers/full [get]
func (h *CatalogHandler) ListCareers(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	list, err := h.careers.List(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetCareer godoc
// @Summary Get a career
// @Tags Careers
// @Produce json
// @Param id path string true "Career ID"
// @Success 200 {object} models.Career
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /careers/full/{id} [get]
func (h *CatalogHandler) GetCareer(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	career, err := h.careers.Get(ctx, c.Param("id"))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, career)
}

// UpdateCareer godoc
// @Summary Update a career
// @Tags Careers
// @Accept json
// @Produce json
// @Param id path string true "Career ID"
// @Param request body models.UpdateCareerRequest true "Changes"
// @Success 200 {object} models.Career
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /careers/full/{id} [put]
func (h *CatalogHandler) UpdateCareer(c echo.Context) error {
	var req models.UpdateCareerRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	career, err := h.careers.Update(ctx, c.Param("id"), req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, career)
}

// DeleteCareer godoc
// @Summary Delete a career
// @Tags Careers
// @Produce json
// @Param id path string true "Career ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /careers/full/{id} [delete]
func (h *CatalogHandler) DeleteCareer(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.careers.Delete(ctx, c.Param("id")); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Carrera eliminada"})
}

// CareerNames godoc
// @Summary Career names
// @Description Active careers merged with the catalog, without duplicates
// @Tags Careers
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /careers/list [get]
func (h *CatalogHandler) CareerNames(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	names, err := h.careers.Names(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, names)
}
