package controller

import (
	"net/http"

	"course_sync_backend/internal/service"
	"course_sync_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Lifecycle *service.LifecycleController
}

func NewSessionController(lifecycle *service.LifecycleController) *SessionController {
	return &SessionController{Lifecycle: lifecycle}
}

type lifecycleRequest struct {
	State string `json:"state" binding:"required"`
}

// Transition 客户端上报前后台切换，立即返回，冲刷在后台进行
func (ctl *SessionController) Transition(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	var req lifecycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	state, ok := service.ParseAppState(req.State)
	if !ok {
		util.BadRequest(c, "unknown lifecycle state: "+req.State)
		return
	}

	ctl.Lifecycle.OnTransition(user.UserID, state)
	util.Success(c, nil)
}

// Flush 登出前的同步冲刷；失败返回502，由认证服务决定是否仍然清除本地数据
func (ctl *SessionController) Flush(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	if err := ctl.Lifecycle.SignOut(c.Request.Context(), user.UserID); err != nil {
		util.Error(c, http.StatusBadGateway, "sync flush incomplete: "+err.Error())
		return
	}
	util.Success(c, nil)
}

// Restore 登录或会话开始时拉取远端权威进度
func (ctl *SessionController) Restore(c *gin.Context) {
	user := util.GetUserFromContext(c)
	if user == nil {
		util.Unauthorized(c)
		return
	}

	ctl.Lifecycle.Restore(c.Request.Context(), user.UserID)
	util.Success(c, nil)
}
