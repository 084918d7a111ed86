package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/keys"
	"github.com/tturner/smiteclick/internal/metrics"
	"github.com/tturner/smiteclick/internal/orch"
	"github.com/tturner/smiteclick/internal/settings"
	"github.com/tturner/smiteclick/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

type resultBody struct {
	SessionID string  `json:"session_id"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Seconds   float64 `json:"duration_seconds"`
	Count     int64   `json:"count"`
	Reason    string  `json:"reason"`
	Error     string  `json:"error,omitempty"`
}

type statusBody struct {
	Phase     orch.Phase  `json:"phase"`
	SessionID string      `json:"session_id,omitempty"`
	Count     int64       `json:"count"`
	StartedAt string      `json:"started_at,omitempty"`
	Last      *resultBody `json:"last,omitempty"`
}

type controlBody struct {
	Changed bool       `json:"changed"`
	Status  statusBody `json:"status"`
}

type modeBody struct {
	Mode            settings.CPSMode `json:"mode"`
	Min             float64          `json:"min"`
	Max             float64          `json:"max"`
	Warning         string           `json:"warning,omitempty"`
	CooldownSeconds float64          `json:"cooldown_seconds,omitempty"`
}

type createProfileRequest struct {
	Name string `json:"name" binding:"required"`
	// Settings defaults to the current settings when omitted.
	Settings settings.Record `json:"settings"`
	Replace  bool            `json:"replace"`
}

type keyRequest struct {
	Key    string `json:"key" binding:"required"`
	Action string `json:"action"`
}

func toStatusBody(st orch.Status) statusBody {
	b := statusBody{Phase: st.Phase, SessionID: st.SessionID, Count: st.Count}
	if !st.StartedAt.IsZero() {
		b.StartedAt = st.StartedAt.UTC().Format(time.RFC3339Nano)
	}
	if st.Last != nil {
		r := &resultBody{
			SessionID: st.Last.SessionID,
			Start:     st.Last.Start.UTC().Format(time.RFC3339Nano),
			End:       st.Last.End.UTC().Format(time.RFC3339Nano),
			Seconds:   st.Last.Duration().Seconds(),
			Count:     st.Last.Count,
			Reason:    string(st.Last.Reason),
		}
		if st.Last.Err != nil {
			r.Error = st.Last.Err.Error()
		}
		b.Last = r
	}
	return b
}

// fail maps domain errors onto status codes.
func fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, settings.ErrInvalidSetting), errors.Is(err, settings.ErrHotkeyConflict):
		code = http.StatusBadRequest
	case errors.Is(err, store.ErrProfileNotFound), errors.Is(err, store.ErrLogNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrProfileNameConflict):
		code = http.StatusConflict
	}
	c.AbortWithStatusJSON(code, errorBody{Error: err.Error()})
}

func badRequest(c *gin.Context, format string, args ...any) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: fmt.Sprintf(format, args...)})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id %q", c.Param("id"))
		return 0, false
	}
	return id, true
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, toStatusBody(s.deps.Control.Status()))
}

func (s *Server) postStart(c *gin.Context) {
	changed := s.deps.Control.Start()
	c.JSON(http.StatusOK, controlBody{Changed: changed, Status: toStatusBody(s.deps.Control.Status())})
}

func (s *Server) postStop(c *gin.Context) {
	changed := s.deps.Control.Stop()
	c.JSON(http.StatusOK, controlBody{Changed: changed, Status: toStatusBody(s.deps.Control.Status())})
}

func (s *Server) postToggle(c *gin.Context) {
	s.deps.Control.Toggle()
	c.JSON(http.StatusOK, controlBody{Changed: true, Status: toStatusBody(s.deps.Control.Status())})
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Settings.Record())
}

// patchSettings commits the whole patch as one store write. A bad field
// leaves everything unchanged.
func (s *Server) patchSettings(c *gin.Context) {
	var patch settings.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid JSON body: %v", err)
		return
	}
	if len(patch) == 0 {
		badRequest(c, "empty patch")
		return
	}
	changed, err := s.deps.Settings.UpdateRecord(patch)
	if err != nil {
		fail(c, err)
		return
	}
	s.log.Verbose("api: settings updated: %s", strings.Join(lo.Map(changed, func(k settings.Key, _ int) string {
		return string(k)
	}), ", "))
	c.JSON(http.StatusOK, s.deps.Settings.Record())
}

func (s *Server) getModes(c *gin.Context) {
	c.JSON(http.StatusOK, lo.Map(settings.Modes(), func(m settings.ModeInfo, _ int) modeBody {
		return modeBody{
			Mode:            m.Mode,
			Min:             m.Min,
			Max:             m.Max,
			Warning:         m.Warning,
			CooldownSeconds: m.Cooldown.Seconds(),
		}
	}))
}

func (s *Server) listProfiles(c *gin.Context) {
	list, err := s.deps.Store.ListProfiles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []store.ProfileSummary{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: %v", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(c, "profile name is required")
		return
	}
	rec := req.Settings
	if rec == nil {
		rec = s.deps.Settings.Record()
	}
	if _, err := settings.Defaults().ApplyRecord(rec); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	var (
		id  int64
		err error
	)
	if req.Replace {
		id, err = s.deps.Store.ReplaceProfile(ctx, req.Name, rec)
	} else {
		id, err = s.deps.Store.SaveProfile(ctx, req.Name, rec)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "name": strings.TrimSpace(req.Name)})
}

func (s *Server) getProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := s.deps.Store.GetProfile(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteProfile(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// loadProfile replaces the live settings. Invalid stored values are
// skipped and reported alongside the resulting settings.
func (s *Server) loadProfile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := s.deps.Store.GetProfile(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	body := gin.H{"name": p.Name}
	if err := s.deps.Settings.LoadProfile(p.Settings); err != nil {
		body["warning"] = err.Error()
	}
	body["settings"] = s.deps.Settings.Record()
	s.log.Info("api: loaded profile %q", p.Name)
	c.JSON(http.StatusOK, body)
}

func (s *Server) listLogs(c *gin.Context) {
	logs, err := s.deps.Store.ListLogs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			badRequest(c, "invalid limit %q", limit)
			return
		}
		if n < len(logs) {
			logs = logs[:n]
		}
	}
	if logs == nil {
		logs = []store.LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) logStats(c *gin.Context) {
	logs, err := s.deps.Store.ListLogs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	sum := metrics.Summarize(logs)
	c.JSON(http.StatusOK, gin.H{
		"sessions":        sum.Sessions,
		"total_clicks":    sum.TotalClicks,
		"total_seconds":   sum.TotalDuration.Seconds(),
		"empty_sessions":  sum.EmptySessions,
		"avg_cps":         sum.AvgCPS,
		"min_cps":         sum.MinCPS,
		"max_cps":         sum.MaxCPS,
		"p50_cps":         sum.P50CPS,
		"p90_cps":         sum.P90CPS,
		"duration_bucket": sum.DurationBuckets,
	})
}

func (s *Server) exportLogs(c *gin.Context) {
	format := metrics.Format(strings.ToLower(c.DefaultQuery("format", string(metrics.FormatCSV))))
	logs, err := s.deps.Store.ListLogs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	switch format {
	case metrics.FormatCSV:
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="smiteclick-logs.csv"`)
	case metrics.FormatJSON:
		c.Header("Content-Type", "application/json; charset=utf-8")
	default:
		badRequest(c, "unknown format %q", format)
		return
	}
	c.Status(http.StatusOK)
	if err := metrics.Write(c.Writer, format, logs); err != nil {
		s.log.Error("api: export logs: %v", err)
	}
}

func (s *Server) clearLogs(c *gin.Context) {
	n, err := s.deps.Store.ClearLogs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) deleteLog(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteLog(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listWindows(c *gin.Context) {
	if s.deps.Windows == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, errorBody{Error: "window listing unavailable"})
		return
	}
	titles, err := s.deps.Windows.ListWindowTitles()
	if err != nil {
		fail(c, err)
		return
	}
	if q := strings.ToLower(c.Query("q")); q != "" {
		titles = lo.Filter(titles, func(t string, _ int) bool {
			return strings.Contains(strings.ToLower(t), q)
		})
	}
	if titles == nil {
		titles = []string{}
	}
	c.JSON(http.StatusOK, titles)
}

// postKey injects a key transition as if it came from the keyboard.
// action is "down", "up" or "press" (the default, down then up).
func (s *Server) postKey(c *gin.Context) {
	if s.deps.Keys == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, errorBody{Error: "key injection unavailable"})
		return
	}
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: %v", err)
		return
	}
	id, err := keys.Canonical(req.Key)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}

	var actions []hotkey.Action
	switch strings.ToLower(req.Action) {
	case "", "press":
		actions = []hotkey.Action{hotkey.KeyDown, hotkey.KeyUp}
	case "down":
		actions = []hotkey.Action{hotkey.KeyDown}
	case "up":
		actions = []hotkey.Action{hotkey.KeyUp}
	default:
		badRequest(c, "unknown action %q", req.Action)
		return
	}
	for _, a := range actions {
		if !s.deps.Keys.Send(hotkey.KeyEvent{Action: a, Key: id}) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: "key source is not listening"})
			return
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"key": id, "events": len(actions)})
}
