package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/farm-market-api/internal/dto"
	"github.com/flicky/farm-market-api/internal/service"
)

type FarmerHandler struct {
	mapService *service.FarmerMapService
}

func NewFarmerHandler(mapService *service.FarmerMapService) *FarmerHandler {
	return &FarmerHandler{mapService: mapService}
}

func (h *FarmerHandler) Map(c *gin.Context) {
	locs, err := h.mapService.Locations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]dto.FarmerLocationResponse, 0, len(locs))
	for _, l := range locs {
		out = append(out, dto.FarmerLocationResponse{
			FarmerID:  l.FarmerID,
			State:     l.State,
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Crops:     l.Crops,
		})
	}
	c.JSON(http.StatusOK, gin.H{"farmers": out})
}
