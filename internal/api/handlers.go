package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"SignalSentinel/internal/advisor"
	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/evaluator"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxCandleLimit   = 1000
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.Stats.GetStats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) listRecommendations(c *gin.Context) {
	status := model.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of pending, accurate, inaccurate, expired"})
		return
	}
	limit, ok := queryLimit(c, defaultListLimit, maxListLimit)
	if !ok {
		return
	}
	recs, err := s.Store.ListRecent(c.Request.Context(), status, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

func (s *Server) getRecommendation(c *gin.Context) {
	rec, err := s.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) evaluate(c *gin.Context) {
	sum, err := s.Evaluator.EvaluateAllPending(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if sum.Transitions == nil {
		sum.Transitions = []evaluator.Transition{}
	}
	c.JSON(http.StatusOK, sum)
}

type analyzeRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Interval string `json:"interval"`
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	interval := req.Interval
	if interval == "" {
		interval = s.DefaultInterval
	}
	res, err := s.Advisor.Analyze(c.Request.Context(), collector.NormalizeSymbol(req.Symbol), interval)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) indicators(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	interval := c.DefaultQuery("interval", s.DefaultInterval)
	limit, ok := queryLimit(c, s.DefaultLimit, maxCandleLimit)
	if !ok {
		return
	}

	candles, err := s.Fetcher.FetchCandles(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	snap, err := calculator.ComputeIndicators(candles)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"interval": interval,
		"candles":  len(candles),
		"snapshot": snap,
		"last_bar": candles[len(candles)-1].OpenTime,
		"source":   s.Fetcher.Name(),
	})
}

func (s *Server) price(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	q, ok := s.Quotes.QuoteOrCached(c.Request.Context(), symbol)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price temporarily unavailable", "symbol": symbol})
		return
	}
	c.JSON(http.StatusOK, q)
}

// queryLimit parses ?limit=, writing a 400 and returning false when invalid.
func queryLimit(c *gin.Context, def, max int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(max)})
		return 0, false
	}
	return n, true
}

// fail maps domain errors to status codes. Upstream and storage failures
// surface as 503 without internal detail.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		code int
		msg  string
	)
	var transport *collector.TransportError
	var format *collector.DataFormatError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code, msg = http.StatusNotFound, "not found"
	case errors.Is(err, collector.ErrUnsupportedInterval):
		code, msg = http.StatusBadRequest, "unsupported interval"
	case errors.Is(err, calculator.ErrNoData):
		code, msg = http.StatusServiceUnavailable, "no market data"
	case errors.Is(err, advisor.ErrInvalidCandidate):
		code, msg = http.StatusBadGateway, "generator returned an invalid recommendation"
	case errors.As(err, &transport), errors.As(err, &format):
		code, msg = http.StatusServiceUnavailable, "market data temporarily unavailable"
	default:
		code, msg = http.StatusServiceUnavailable, "temporarily unavailable"
	}
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(code, gin.H{"error": msg})
}
