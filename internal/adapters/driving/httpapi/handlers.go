package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

type indexAllRequest struct {
	Force bool `json:"force"`
}

type indexURLRequest struct {
	URL          string     `json:"url"`
	Force        bool       `json:"force"`
	Variants     []string   `json:"variants"`
	LastModified *time.Time `json:"last_modified"`
}

type indexURLResponse struct {
	URL     string              `json:"url"`
	Outcome domain.IndexOutcome `json:"outcome"`
	Result  *bool               `json:"result"`
}

type workRequest struct {
	BatchSize int `json:"batch_size"`
}

type questionRequest struct {
	Question string                `json:"question"`
	TopK     int                   `json:"top_k"`
	Hints    domain.RetrievalHints `json:"hints"`
}

type purgeRequest struct {
	URLs  []string `json:"urls"`
	Paths []string `json:"paths"`
}

type countResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) registerIndex(g *echo.Group) {
	g.POST("", s.indexAll)
	g.POST("/url", s.indexURL)
	g.DELETE("/url", s.removeURL)
	g.POST("/work", s.workBatch)
	g.GET("/status", s.status)
}

func (s *Server) registerAnswers(g *echo.Group) {
	g.POST("/retrieve", s.retrieve)
	g.POST("/ask", s.ask)
}

func (s *Server) registerCache(g *echo.Group) {
	g.DELETE("", s.clearCache)
	g.DELETE("/:id", s.deleteCacheEntry)
	g.POST("/purge", s.purgeCache)
	g.GET("/find", s.findCache)
}

func (s *Server) indexAll(c echo.Context) error {
	if s.ports.Indexer == nil {
		return errUnavailable
	}
	var req indexAllRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	res, err := s.ports.Indexer.IndexAll(c.Request().Context(), driving.IndexAllOptions{Force: req.Force})
	if err != nil {
		return err
	}
	code := http.StatusAccepted
	if !res.OK {
		code = http.StatusOK
	}
	return c.JSON(code, res)
}

func (s *Server) indexURL(c echo.Context) error {
	if s.ports.Indexer == nil {
		return errUnavailable
	}
	var req indexURLRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	outcome, err := s.ports.Indexer.IndexSingleURL(c.Request().Context(), req.URL, driving.IndexURLOptions{
		Force:         req.Force,
		KnownVariants: req.Variants,
		LastModified:  req.LastModified,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, indexURLResponse{URL: req.URL, Outcome: outcome, Result: outcome.Result()})
}

func (s *Server) removeURL(c echo.Context) error {
	if s.ports.Indexer == nil {
		return errUnavailable
	}
	var req indexURLRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	if req.URL == "" {
		req.URL = c.QueryParam("url")
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	res, err := s.ports.Indexer.RemoveURL(c.Request().Context(), req.URL, req.Variants)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) workBatch(c echo.Context) error {
	if s.ports.Indexer == nil {
		return errUnavailable
	}
	var req workRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	res, err := s.ports.Indexer.WorkBatch(c.Request().Context(), req.BatchSize)
	if err != nil {
		return err
	}
	if res.LeaseHeld {
		return c.JSON(http.StatusConflict, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) status(c echo.Context) error {
	if s.ports.Indexer == nil {
		return errUnavailable
	}
	st, err := s.ports.Indexer.Status(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) retrieve(c echo.Context) error {
	if s.ports.Retriever == nil {
		return errUnavailable
	}
	req, err := s.bindQuestion(c)
	if err != nil {
		return err
	}
	res, err := s.ports.Retriever.Retrieve(c.Request().Context(), req.Question, req.TopK, req.Hints)
	if err != nil {
		return err
	}
	if res.Sources == nil {
		res.Sources = []domain.SourceRef{}
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) ask(c echo.Context) error {
	if s.ports.Answerer == nil {
		return errUnavailable
	}
	req, err := s.bindQuestion(c)
	if err != nil {
		return err
	}
	ans, err := s.ports.Answerer.Answer(c.Request().Context(), req.Question)
	if err != nil {
		return err
	}
	if ans.Sources == nil {
		ans.Sources = []domain.SourceRef{}
	}
	return c.JSON(http.StatusOK, ans)
}

func (s *Server) findCache(c echo.Context) error {
	if s.ports.Cache == nil {
		return errUnavailable
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	entry, err := s.ports.Cache.Find(c.Request().Context(), q)
	if err != nil {
		return err
	}
	if entry == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no cached answer")
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) clearCache(c echo.Context) error {
	if s.ports.Cache == nil {
		return errUnavailable
	}
	n, err := s.ports.Cache.Clear(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Deleted: n})
}

func (s *Server) deleteCacheEntry(c echo.Context) error {
	if s.ports.Cache == nil {
		return errUnavailable
	}
	n, err := s.ports.Cache.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if n == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no such entry")
	}
	return c.JSON(http.StatusOK, countResponse{Deleted: n})
}

func (s *Server) purgeCache(c echo.Context) error {
	if s.ports.Cache == nil {
		return errUnavailable
	}
	var req purgeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if len(req.URLs) == 0 && len(req.Paths) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "urls or paths are required")
	}
	n, err := s.ports.Cache.PurgeBySourceURLs(c.Request().Context(), req.URLs, req.Paths)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Deleted: n})
}

func (s *Server) bindQuestion(c echo.Context) (*questionRequest, error) {
	var req questionRequest
	if err := c.Bind(&req); err != nil {
		return nil, badRequest(err)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	if len(req.Question) > s.cfg.MaxQuestionLength {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("question exceeds %d bytes", s.cfg.MaxQuestionLength))
	}
	return &req, nil
}

// bindOptional binds a JSON body when one is present.
func bindOptional(c echo.Context, v any) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	if err := c.Bind(v); err != nil {
		return badRequest(err)
	}
	return nil
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
}
