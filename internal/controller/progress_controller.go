package controller

import (
	"errors"

	"course_sync_backend/internal/service"
	"course_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Progress *service.ProgressService
}

func NewProgressController(progress *service.ProgressService) *ProgressController {
	return &ProgressController{Progress: progress}
}

// Advance 滑片切换事件：乐观推进本地进度，立即返回更新后的快照
func (ctl *ProgressController) Advance(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	var req service.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	snap, err := ctl.Progress.Advance(c.Request.Context(), user.UserID, req)
	if err != nil {
		if errors.Is(err, util.ErrInvalidSlideCount) {
			util.BadRequest(c, err.Error())
			return
		}
		util.LogInternalError(c, err)
		return
	}

	util.Success(c, snap)
}

// List 全部课程进度，进度条渲染用
func (ctl *ProgressController) List(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	snapshots := ctl.Progress.Progress(c.Request.Context(), user.UserID)
	util.Success(c, snapshots)
}

// Get 单门课程进度
func (ctl *ProgressController) Get(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	snap := ctl.Progress.CourseProgress(c.Request.Context(), user.UserID, c.Param("courseId"))
	if snap == nil {
		util.NotFound(c)
		return
	}
	util.Success(c, snap)
}

type resetRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// Reset 清零课程进度，记录保留
func (ctl *ProgressController) Reset(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	err := ctl.Progress.Reset(c.Request.Context(), user.UserID, req.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}

	util.Success(c, nil)
}
