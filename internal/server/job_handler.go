package server

import (
	"net/http"

	"github.com/iceymoss/go-agora/internal/engine"
	errs "github.com/iceymoss/go-agora/pkg/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) listJobs(c *gin.Context) {
	if s.svc.Scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"data": []*engine.JobStats{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.svc.Scheduler.Stats.GetAll()})
}

func (s *Server) runJob(c *gin.Context) {
	name := c.Param("name")
	if s.svc.Scheduler == nil || s.svc.Scheduler.ManualRun(name) != nil {
		fail(c, errs.NotFound("job not found"))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Triggered"})
}
