package handler

import (
	"github.com/gin-gonic/gin"

	"medrag/internal/pkg/errcode"
	"medrag/internal/pkg/response"
	"medrag/internal/service"
)

type ChatHandler struct {
	query *service.QueryService
}

func NewChatHandler(query *service.QueryService) *ChatHandler {
	return &ChatHandler{query: query}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat answers a question from documents visible to the requester's role. The
// role comes from the verified token, never from the request body.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	answer, err := h.query.Answer(c.Request.Context(), req.Message, getRole(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}
