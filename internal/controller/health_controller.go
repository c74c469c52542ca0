package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

func (ctl *HealthController) Check(c *gin.Context) {
	status := http.StatusOK
	result := gin.H{"status": "ok"}

	sqlDB, err := ctl.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = http.StatusServiceUnavailable
		result["database"] = "down"
	} else {
		result["database"] = "up"
	}

	if ctl.Redis != nil {
		if err := ctl.Redis.Ping(c.Request.Context()).Err(); err != nil {
			status = http.StatusServiceUnavailable
			result["redis"] = "down"
		} else {
			result["redis"] = "up"
		}
	}

	c.JSON(status, result)
}
