package server

import (
	"net/http"

	"github.com/iceymoss/go-agora/internal/topic"
	"github.com/iceymoss/go-agora/internal/visit"
	"github.com/iceymoss/go-agora/pkg/db/objects"

	"github.com/gin-gonic/gin"
)

func (s *Server) trendingKeywords(c *gin.Context) {
	out, err := s.svc.Keywords.TrendingKeywords(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listTopics(c *gin.Context) {
	out, err := s.svc.Topics.ListOpen(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) popularTopics(c *gin.Context) {
	s.rankTopics(c, topic.RankingLimit)
}

func (s *Server) allPopularTopics(c *gin.Context) {
	s.rankTopics(c, 0)
}

func (s *Server) rankTopics(c *gin.Context, limit int) {
	out, err := s.svc.Topics.Popular(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) latestTopics(c *gin.Context) {
	out, err := s.svc.Topics.Latest(c.Request.Context(), topic.RankingLimit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getTopic(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := s.svc.Topics.Get(c.Request.Context(), id, principal(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) recordView(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	identifier := topic.ViewerIdentifier(principal(c), visit.Identifier(c.Request))
	counted, err := s.svc.Topics.RecordView(c.Request.Context(), id, identifier)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counted": counted})
}

type voteRequest struct {
	Side string `json:"side"`
}

func (s *Server) castVote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req voteRequest
	if !bindJSON(c, &req) {
		return
	}
	tally, err := s.svc.Votes.CastVote(c.Request.Context(), id, principal(c).UserID, objects.Side(req.Side))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}
