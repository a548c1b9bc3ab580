package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

type supportMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SupportTranscript 客服对话记录
// @Summary 客服对话
// @Tags support
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Success 200 {object} response.Response{data=[]service.ChatMessage}
// @Router /api/v1/support/messages [get]
func (h *Handler) SupportTranscript(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, h.support.Transcript(sess))
}

// SendSupportMessage 发送消息并获得自动回复
// @Summary 发送客服消息
// @Tags support
// @Accept json
// @Produce json
// @Param X-Session-Token header string false "会话 token"
// @Param request body supportMessageRequest true "消息"
// @Success 200 {object} response.Response{data=[]service.ChatMessage}
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/support/messages [post]
func (h *Handler) SendSupportMessage(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req supportMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msgs, err := h.support.Send(sess, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, msgs)
}
