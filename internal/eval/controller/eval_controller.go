// Package controller exposes the evaluation engine over HTTP.
package controller

import (
	"codeval/internal/eval/model"
	"codeval/internal/eval/service"
	appErr "codeval/pkg/errors"
	"codeval/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// EvalController handles evaluation and ad-hoc run requests.
type EvalController struct {
	svc *service.Service
}

func NewEvalController(svc *service.Service) *EvalController {
	return &EvalController{svc: svc}
}

// RegisterRoutes mounts the API under the given router group.
func (h *EvalController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluations", h.Evaluate)
	r.POST("/run", h.Run)
	r.DELETE("/evaluations/:submissionId", h.Cancel)
	r.GET("/backend", h.Backend)
}

// Evaluate grades a submission and returns the full report. The call
// blocks until the suite finishes; clients needing async delivery
// consume the report topic instead.
func (h *EvalController) Evaluate(c *gin.Context) {
	var req model.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, appErr.InvalidParams, err.Error())
		return
	}
	report, err := h.svc.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// Run executes code once against caller-supplied input.
func (h *EvalController) Run(c *gin.Context) {
	var req model.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, appErr.InvalidParams, err.Error())
		return
	}
	out, err := h.svc.RunAdhoc(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, out)
}

// Cancel stops an in-flight evaluation.
func (h *EvalController) Cancel(c *gin.Context) {
	submissionID := c.Param("submissionId")
	if submissionID == "" {
		response.ErrorWithCode(c, appErr.InvalidParams, "submission id is required")
		return
	}
	if !h.svc.Cancel(submissionID) {
		response.Error(c, appErr.Newf(appErr.EvaluationNotFound, "no running evaluation for submission %s", submissionID))
		return
	}
	response.Success(c, gin.H{"submissionId": submissionID, "cancelled": true})
}

// Backend reports the sandbox backend state and pool usage.
func (h *EvalController) Backend(c *gin.Context) {
	response.Success(c, h.svc.BackendStatus())
}
