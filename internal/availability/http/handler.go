package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/pkg/response"
)

type Handler struct {
	resolver *availability.Resolver
}

func NewHandler(resolver *availability.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) Resolve(c *gin.Context) {
	var body ResolveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	candidates, err := h.resolver.Resolve(c.Request.Context(), body.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := ResolveResponse{Candidates: make([]CandidateResponse, 0, len(candidates))}
	for _, cand := range candidates {
		if cand.Classification == availability.Available {
			resp.Available++
		}
		resp.Candidates = append(resp.Candidates, NewCandidateResponse(cand))
	}
	resp.Total = len(resp.Candidates)

	c.JSON(http.StatusOK, resp)
}
