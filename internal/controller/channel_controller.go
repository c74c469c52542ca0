package controller

import (
	"encoding/json"

	"course_sync_backend/internal/service"
	"course_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChannelController struct {
	Quiz *service.QuizChannel
	Chat *service.ChatChannel
}

func NewChannelController(quiz *service.QuizChannel, chat *service.ChatChannel) *ChannelController {
	return &ChannelController{Quiz: quiz, Chat: chat}
}

type quizAnswerRequest struct {
	CourseID string          `json:"courseId" binding:"required"`
	SlideID  string          `json:"slideId" binding:"required"`
	Payload  json.RawMessage `json:"payload" binding:"required"`
}

// RecordQuizAnswer 把测验答案写进本地缓冲，等待生命周期触发冲刷
func (ctl *ChannelController) RecordQuizAnswer(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	var req quizAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	if err := ctl.Quiz.Record(c.Request.Context(), user.UserID, req.CourseID, req.SlideID, req.Payload); err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, nil)
}

type chatTranscriptRequest struct {
	CourseID string          `json:"courseId" binding:"required"`
	SlideID  string          `json:"slideId" binding:"required"`
	Messages json.RawMessage `json:"messages" binding:"required"`
}

// RecordChatTranscript 把一张幻灯片的聊天记录写进本地缓冲
func (ctl *ChannelController) RecordChatTranscript(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	var req chatTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	if err := ctl.Chat.Record(c.Request.Context(), user.UserID, req.CourseID, req.SlideID, req.Messages); err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, nil)
}
