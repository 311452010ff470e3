package api

import (
	"errors"
	"net/http"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/analytics"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/graph"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/neighborhood"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type recordRequest struct {
	StudentID  string   `json:"student_id" binding:"required"`
	NodeID     string   `json:"node_id" binding:"required"`
	NodeLabel  string   `json:"node_label"`
	ActionType string   `json:"action_type"`
	Duration   *float64 `json:"duration"`
}

// relationView is one relationship as seen from a node, with the other end's label
type relationView struct {
	Type      string `json:"type"`
	NodeID    string `json:"node_id"`
	NodeLabel string `json:"node_label"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"backend_available": h.graph.IsAvailable(),
		"namespace":         h.ns,
	})
}

func (h *Handler) getGraph(c *gin.Context) {
	c.JSON(http.StatusOK, h.documents.Get())
}

func (h *Handler) getNode(c *gin.Context) {
	doc := h.documents.Get()
	id := c.Param("id")

	node, ok := doc.Node(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Node not found"})
		return
	}

	outgoing, incoming := []relationView{}, []relationView{}
	for _, rel := range doc.Relationships {
		switch id {
		case rel.Source:
			outgoing = append(outgoing, relationView{Type: rel.EffectiveType(), NodeID: rel.Target, NodeLabel: labelOf(doc, rel.Target)})
		case rel.Target:
			incoming = append(incoming, relationView{Type: rel.EffectiveType(), NodeID: rel.Source, NodeLabel: labelOf(doc, rel.Source)})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"node":     node,
		"outgoing": outgoing,
		"incoming": incoming,
	})
}

func (h *Handler) getNeighborhood(c *gin.Context) {
	view, ok := neighborhood.Highlight(h.documents.Get(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Node not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) recordInteraction(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	label := req.NodeLabel
	if label == "" {
		label = labelOf(h.documents.Get(), req.NodeID)
	}
	var duration float64
	if req.Duration != nil {
		duration = *req.Duration
	}

	result := h.interactions.Record(c.Request.Context(), h.ns, req.StudentID, req.NodeID, label, model.ActionType(req.ActionType), duration)
	if !result.Persisted() {
		h.logger.Error("Interaction lost, no sink accepted it",
			zap.String("interaction_id", result.Event.InteractionID),
			zap.NamedError("primary_error", result.PrimaryErr),
			zap.NamedError("local_error", result.LocalErr),
		)
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listInteractions(c *gin.Context) {
	events, source, err := h.interactions.ReadAll(c.Request.Context(), h.ns)
	if err != nil {
		h.fail(c, "Failed to read interactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":       source,
		"count":        len(events),
		"interactions": events,
	})
}

func (h *Handler) listStudentInteractions(c *gin.Context) {
	studentID := c.Param("id")
	events, err := h.interactions.ReadForStudent(c.Request.Context(), h.ns, studentID)
	if err != nil {
		h.fail(c, "Failed to read student interactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student_id":        studentID,
		"backend_available": h.interactions.PrimaryAvailable(),
		"count":             len(events),
		"interactions":      events,
	})
}

func (h *Handler) clearInteractions(c *gin.Context) {
	if err := h.interactions.Clear(c.Request.Context(), h.ns); err != nil {
		h.fail(c, "Failed to clear interactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	events, source, err := h.interactions.ReadAll(ctx, h.ns)
	if err != nil {
		h.fail(c, "Failed to read interactions", err)
		return
	}

	doc := h.documents.Get()
	resp := gin.H{
		"source":   source,
		"summary":  analytics.Summarize(events, doc),
		"document": gin.H{"nodes": len(doc.Nodes), "relationships": len(doc.Relationships)},
	}

	if h.graph.IsAvailable() {
		backend, err := h.graph.Stats(ctx, h.ns)
		if err != nil {
			h.logger.Warn("Failed to count backend entities", zap.Error(err))
		} else {
			resp["backend"] = backend
		}
	}

	if studentID := c.Query("student"); studentID != "" {
		resp["student"] = analytics.Student(events, studentID)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) rebuild(c *gin.Context) {
	report, err := h.pipeline.Rebuild(c.Request.Context(), h.ns, h.documents.Get())
	if err != nil {
		h.fail(c, "Rebuild failed", err)
		return
	}
	if report.Status == graph.Unavailable {
		c.JSON(http.StatusServiceUnavailable, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) newWarehouse(c *gin.Context) {
	doc, err := h.pipeline.NewWarehouse(c.Request.Context(), h.ns, h.documents.Path(), h.interactions)
	if err != nil {
		h.fail(c, "Failed to create warehouse", err)
		return
	}
	h.documents.Set(doc)
	c.JSON(http.StatusCreated, doc)
}

// fail maps an error to a status code and a response body without leaking internals
func (h *Handler) fail(c *gin.Context, message string, err error) {
	var invalid *apperrors.ErrDocumentInvalid
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": message, "problems": invalid.Problems})
		return
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": message})
		return
	}

	h.logger.Error(message, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func labelOf(doc *model.Document, id string) string {
	if node, ok := doc.Node(id); ok {
		return node.Label
	}
	return id
}
