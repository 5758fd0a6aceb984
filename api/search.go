package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flightcore/internal/cache"
	"github.com/Domenick1991/flightcore/internal/service/search"
	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 50

type SearchHandler struct {
	service search.SearchUseCase
}

func NewSearchHandler(service search.SearchUseCase) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.flights)
	router.GET("/paths", h.paths)
}

func (h *SearchHandler) flights(c *gin.Context) {
	source := c.Query("source")
	destination := c.Query("destination")
	date := c.Query("date")
	if source == "" || destination == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source, destination and date are required"})
		return
	}

	sort := cache.SortKey(c.DefaultQuery("sort", string(cache.SortByPrice)))
	if sort != cache.SortByPrice && sort != cache.SortByFastest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be price or fastest"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultSearchLimit)), 10, 64)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	flights, err := h.service.RankedSearch(c.Request.Context(), source, destination, date, sort, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *SearchHandler) paths(c *gin.Context) {
	source := c.Query("source")
	destination := c.Query("destination")
	date := c.Query("date")
	if source == "" || destination == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source, destination and date are required"})
		return
	}

	itineraries, err := h.service.PathSearch(c.Request.Context(), source, destination, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itineraries)
}
