package handlers

import (
	"net/http"

	"carmarket/middleware"
	"carmarket/models"
	"carmarket/search"

	"github.com/gin-gonic/gin"
)

// ListCars accepts the search query parameters described in package search.
func (h *Handler) ListCars(c *gin.Context) {
	filter, err := search.Parse(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	cars, err := h.cars.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cars)
}

func (h *Handler) CarColors(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	colors, err := h.cars.Colors(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, colors)
}

func (h *Handler) CarCities(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	cities, err := h.cars.Cities(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cities)
}

func (h *Handler) GetCar(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	car, err := h.cars.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *Handler) CreateCar(c *gin.Context) {
	var car models.Car
	if !bindJSON(c, &car) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	created, err := h.cars.Create(ctx, &car, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateCar(c *gin.Context) {
	var car models.Car
	if !bindJSON(c, &car) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	updated, err := h.cars.Update(ctx, c.Param("id"), &car, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCar also removes every post about the car, with their comments.
func (h *Handler) DeleteCar(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	deleted, err := h.cars.Delete(ctx, c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted)
}
