// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the route table and its traffic levels over HTTP.
package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/trafficmap/config"
	"github.com/jcodagnone/trafficmap/spatial"
	"github.com/jcodagnone/trafficmap/store"
	"github.com/jcodagnone/trafficmap/traffic"
	"github.com/jcodagnone/trafficmap/utils/textutils"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

// RouteChecker checks a single route.
type RouteChecker interface {
	Check(ctx context.Context, req traffic.RouteRequest, thresholds traffic.Thresholds) traffic.Result
}

type Server struct {
	table   *config.Config
	routes  []traffic.RouteConfig
	repo    store.StatusRepository
	checker RouteChecker
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer serves the routes of table, whose addresses must already be
// resolved.
func NewServer(table *config.Config, repo store.StatusRepository, checker RouteChecker, logger *zap.Logger) (*Server, error) {
	routes, err := table.RouteConfigs()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		table:   table,
		routes:  routes,
		repo:    repo,
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Router returns the gin engine with every endpoint registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog)

	r.GET("/healthz", s.health)
	r.GET("/api/routes", s.listRoutes)
	r.GET("/api/status", s.latestStatus)
	r.GET("/api/status/:name/history", s.history)
	r.GET("/api/status/:name/summary", s.summary)
	r.POST("/api/check/:name", s.check)

	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) accessLog(ctx *gin.Context) {
	start := time.Now()

	ctx.Next()

	s.logger.Debug("request",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.Int("status", ctx.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) findRoute(name string) (traffic.RouteConfig, error) {
	r, err := s.table.Find(name)
	if err != nil {
		return traffic.RouteConfig{}, err
	}

	return r.RouteConfig()
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RouteInfo is a route of the table as listed by the API.
type RouteInfo struct {
	traffic.RouteConfig
	Slug string `json:"slug"`
}

func (s *Server) listRoutes(ctx *gin.Context) {
	infos := make([]RouteInfo, 0, len(s.routes))
	for _, r := range s.routes {
		infos = append(infos, RouteInfo{RouteConfig: r, Slug: textutils.Slug(r.Name)})
	}

	ctx.JSON(http.StatusOK, infos)
}

func (s *Server) latestStatus(ctx *gin.Context) {
	records, err := s.repo.Latest()
	if err != nil {
		s.logger.Error("listing latest statuses", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list statuses"})

		return
	}

	if records == nil {
		records = []store.Record{}
	}

	ctx.JSON(http.StatusOK, records)
}

func (s *Server) history(ctx *gin.Context) {
	limit := defaultHistoryLimit

	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})

			return
		}

		limit = n
	}

	records, err := s.repo.History(ctx.Param("name"), limit)
	if err != nil {
		s.logger.Error("listing history", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})

		return
	}

	if records == nil {
		records = []store.Record{}
	}

	ctx.JSON(http.StatusOK, records)
}

func (s *Server) summary(ctx *gin.Context) {
	summary, err := s.repo.Summary(ctx.Param("name"))
	if errors.Is(err, sql.ErrNoRows) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "route was never checked"})

		return
	}

	if err != nil {
		s.logger.Error("summarizing route", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize route"})

		return
	}

	ctx.JSON(http.StatusOK, summary)
}

func (s *Server) check(ctx *gin.Context) {
	route, err := s.findRoute(ctx.Param("name"))
	if errors.Is(err, config.ErrUnknownRoute) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown route"})

		return
	}

	if err != nil {
		s.logger.Error("loading route", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "route is not resolved"})

		return
	}

	result := s.checker.Check(ctx.Request.Context(), route.Request(), route.Thresholds)
	status := traffic.NewRouteStatus(route.Name, result, s.now())

	err = s.repo.SaveStatuses(
		[]traffic.RouteStatus{status},
		map[string]spatial.Point{route.Name: route.Origin},
	)
	if err != nil {
		s.logger.Error("saving status", zap.String("route", route.Name), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save status"})

		return
	}

	code := http.StatusOK
	if !result.OK() {
		code = http.StatusBadGateway
	}

	ctx.JSON(code, status)
}
