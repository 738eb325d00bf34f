package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	fieldworkdomain "github.com/smallbiznis/freshwall/internal/fieldwork/domain"
)

func (s *Server) CreateClient(c *gin.Context) {
	var req fieldworkdomain.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.fieldworkSvc.CreateClient(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteClient(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	if err := s.fieldworkSvc.DeleteClient(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CreateIncident(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	req := fieldworkdomain.CreateIncidentRequest{ClientID: id}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ClientID = id

	resp, err := s.fieldworkSvc.CreateIncident(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
