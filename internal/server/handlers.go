package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/atlasagent/atlas/internal/agent"
	"github.com/atlasagent/atlas/internal/artifacts"
	"github.com/atlasagent/atlas/internal/session"
)

// maxMessageLen bounds user messages accepted over HTTP and websocket.
const maxMessageLen = 10000

// API serves the REST surface under /api.
type API struct {
	agent    *agent.Agent
	sessions session.Registry
	store    *artifacts.Store
}

func NewAPI(ag *agent.Agent, sessions session.Registry, store *artifacts.Store) *API {
	return &API{agent: ag, sessions: sessions, store: store}
}

func (a *API) Register(g *echo.Group) {
	g.POST("/chat", a.chat)
	g.GET("/sessions", a.listSessions)
	g.GET("/sessions/:id", a.getSession)
	g.DELETE("/sessions/:id", a.deleteSession)
	g.GET("/sessions/:id/artifacts", a.sessionArtifacts)
	g.GET("/sessions/:id/artifacts/:artifact_id", a.getArtifact)
	g.GET("/tools", a.listTools)
	g.POST("/research", a.research)
	g.POST("/analyze", a.analyze)
	g.POST("/document", a.document)
}

type chatRequest struct {
	Content   string         `json:"content"`
	SessionID string         `json:"session_id"`
	Context   map[string]any `json:"context"`
}

func (a *API) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if len(req.Content) > maxMessageLen {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("content exceeds %d characters", maxMessageLen))
	}
	sess := a.sessions.GetOrCreate(req.SessionID)
	resp := a.agent.Execute(c.Request().Context(), req.Content, sess.ID, req.Context)
	if resp.Success {
		recordTurn(a.sessions, a.store, sess.ID, req.Content, resp.Message, resp.Artifacts)
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *API) listSessions(c echo.Context) error {
	sessions := a.sessions.List()
	return c.JSON(http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (a *API) getSession(c echo.Context) error {
	s, err := a.sessions.Get(c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, s)
}

func (a *API) deleteSession(c echo.Context) error {
	id := c.Param("id")
	if err := a.sessions.Delete(id); errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	a.store.ClearSession(id)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "session_id": id})
}

func (a *API) sessionArtifacts(c echo.Context) error {
	id := c.Param("id")
	arts, err := a.sessions.ListArtifacts(id)
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"session_id": id, "artifacts": arts, "count": len(arts)})
}

func (a *API) getArtifact(c echo.Context) error {
	arts, err := a.sessions.ListArtifacts(c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	for _, art := range arts {
		if art["id"] == c.Param("artifact_id") {
			return c.JSON(http.StatusOK, art)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "artifact not found")
}

func (a *API) listTools(c echo.Context) error {
	var out []map[string]any
	for _, tk := range a.agent.Toolkits() {
		var ops []map[string]string
		for _, op := range tk.Operations() {
			ops = append(ops, map[string]string{"name": op.Name, "description": op.Description})
		}
		out = append(out, map[string]any{
			"name":        tk.Name(),
			"description": tk.Description(),
			"operations":  ops,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"agent": a.agent.Name(), "tools": out})
}

type researchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

func (a *API) research(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	instruction := fmt.Sprintf("Research the following topic and provide a comprehensive summary with sources: %s", req.Query)
	return a.runTask(c, req.SessionID, instruction)
}

type analyzeRequest struct {
	DataSource string `json:"data_source"`
	Request    string `json:"request"`
	SessionID  string `json:"session_id"`
}

func (a *API) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DataSource == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "data_source is required")
	}
	instruction := fmt.Sprintf("Analyze the data from %s. %s", req.DataSource, req.Request)
	return a.runTask(c, req.SessionID, instruction)
}

type documentRequest struct {
	DocType      string `json:"doc_type"`
	Requirements string `json:"requirements"`
	SessionID    string `json:"session_id"`
}

func (a *API) document(c echo.Context) error {
	var req documentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Requirements == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requirements is required")
	}
	if req.DocType == "" {
		req.DocType = "document"
	}
	instruction := fmt.Sprintf("Create a %s with the following requirements: %s", req.DocType, req.Requirements)
	return a.runTask(c, req.SessionID, instruction)
}

// runTask executes one convenience-endpoint turn against a session.
func (a *API) runTask(c echo.Context, sessionID, instruction string) error {
	sess := a.sessions.GetOrCreate(sessionID)
	resp := a.agent.Execute(c.Request().Context(), instruction, sess.ID, nil)
	if resp.Success {
		recordTurn(a.sessions, a.store, sess.ID, instruction, resp.Message, resp.Artifacts)
	}
	return c.JSON(http.StatusOK, resp)
}

// recordTurn appends a completed turn to the session history and adopts the
// turn's artifacts into the canonical store under their extracted ids.
func recordTurn(reg session.Registry, store *artifacts.Store, sessionID, userText, reply string, arts []agent.Artifact) {
	snaps := make([]map[string]any, 0, len(arts))
	for _, art := range arts {
		snaps = append(snaps, art.Snapshot())
		store.Adopt(artifacts.Artifact{
			ID:        art.ID,
			Kind:      art.Type,
			Title:     art.Title,
			Content:   art.Content,
			Language:  art.Language,
			SessionID: sessionID,
			Metadata:  art.Metadata,
			CreatedAt: art.CreatedAt,
		})
	}
	_ = reg.AppendTurn(sessionID, userText, reply, snaps)
}
