package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/qareport/common/id"
	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/internal/fetch"
	"basegraph.app/qareport/internal/http/dto"
	"basegraph.app/qareport/internal/render"
	"basegraph.app/qareport/internal/report"
	"basegraph.app/qareport/internal/service"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Fail(err.Error()))
		return
	}

	snap, err := h.reportService.Create(ctx, creds, req.ToServiceRequest())
	if err != nil {
		writeReportError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OK(dto.ToReportResponse(snap)))
}

func (h *ReportHandler) Get(c *gin.Context) {
	snap, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.ToReportResponse(snap)))
}

func (h *ReportHandler) Refresh(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{ReportID: logger.Ptr(reportID)})

	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	snap, err := h.reportService.Refresh(ctx, creds, reportID)
	if err != nil {
		writeReportError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToReportResponse(snap)))
}

func (h *ReportHandler) RemoveIssue(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{ReportID: logger.Ptr(reportID)})

	snap, err := h.reportService.RemoveIssue(ctx, reportID, c.Param("issueId"))
	if err != nil {
		writeReportError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToReportResponse(snap)))
}

func (h *ReportHandler) Delete(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	if err := h.reportService.Delete(c.Request.Context(), reportID); err != nil {
		writeReportError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ReportHandler) HTML(c *gin.Context) {
	h.render(c, render.FormatHTML, "text/html; charset=utf-8")
}

func (h *ReportHandler) Text(c *gin.Context) {
	h.render(c, render.FormatTable, "text/plain; charset=utf-8")
}

func (h *ReportHandler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ReportSchema())
}

func (h *ReportHandler) render(c *gin.Context, format render.Format, contentType string) {
	snap, ok := h.load(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := render.Write(&buf, format, render.Report{
		Title:    reportTitle(snap),
		Buckets:  snap.Buckets,
		Stats:    snap.Stats,
		Warnings: snap.Warnings,
	})
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to render report", "error", err, "report_id", snap.ID)
		c.JSON(http.StatusInternalServerError, dto.Fail("failed to render report"))
		return
	}

	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ReportHandler) load(c *gin.Context) (*service.ReportSnapshot, bool) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return nil, false
	}

	snap, err := h.reportService.Get(c.Request.Context(), reportID)
	if err != nil {
		writeReportError(c, err)
		return nil, false
	}
	return snap, true
}

func reportIDParam(c *gin.Context) (int64, bool) {
	reportID, err := id.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Fail("invalid report id"))
		return 0, false
	}
	return reportID, true
}

func reportTitle(snap *service.ReportSnapshot) string {
	if snap.Request.Source == service.ReportSourceEpic {
		return fmt.Sprintf("QA Report: %s", snap.Request.EpicKey)
	}
	return fmt.Sprintf("QA Report: %d issues", len(snap.Request.IssueKeys))
}

func writeReportError(c *gin.Context, err error) {
	var (
		invalid  *service.InvalidReportRequestError
		missing  *report.MissingRequiredFieldError
		batch    *fetch.BatchFetchError
		epic     *fetch.EpicFetchError
		upstream *issue_tracker.UpstreamRequestError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.Is(err, issue_tracker.ErrMissingCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrReportNotFound), errors.Is(err, report.ErrIssueNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrStaleRefresh):
		status = http.StatusConflict
	case errors.As(err, &upstream) && upstream.StatusCode == http.StatusUnauthorized:
		status = http.StatusUnauthorized
	case errors.As(err, &batch), errors.As(err, &epic), errors.As(err, &upstream), errors.As(err, &missing):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "report request failed", "error", err, "status", status)
	}
	c.JSON(status, dto.Fail(err.Error()))
}
