package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/loginwall/internal/crawler"
	"github.com/JakeFAU/loginwall/internal/loginwall"
	"github.com/JakeFAU/loginwall/internal/metadata"
)

// DetectHandler classifies pages submitted by callers that did their own
// fetching.
type DetectHandler struct {
	detector  *loginwall.Detector
	extractor crawler.MetadataExtractor
	logger    *zap.Logger
}

// NewDetectHandler wires the detector and metadata extractor. A nil detector
// uses the built-in rules and a nil extractor uses metadata.New.
func NewDetectHandler(detector *loginwall.Detector, extractor crawler.MetadataExtractor, logger *zap.Logger) *DetectHandler {
	if detector == nil {
		detector = loginwall.NewDetector(loginwall.DefaultRegistry())
	}
	if extractor == nil {
		extractor = metadata.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetectHandler{
		detector:  detector,
		extractor: extractor,
		logger:    logger,
	}
}

type detectRequest struct {
	OriginalURL string              `json:"original_url"`
	BrowserURL  string              `json:"browser_url"`
	Metadata    *loginwall.Metadata `json:"metadata"`
	HTML        string              `json:"html"`
}

// Detect handles POST /v1/detect. Metadata is extracted from html when the
// request omits it. The response is the verdict; unknown sites are a 200 with
// isLoginRedirect=false.
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.OriginalURL) == "" {
		writeError(w, http.StatusBadRequest, "original_url is required")
		return
	}
	var md loginwall.Metadata
	if req.Metadata != nil {
		md = *req.Metadata
	} else if req.HTML != "" {
		md = h.extractor.Extract(req.HTML)
	}
	result := h.detector.Detect(req.OriginalURL, req.BrowserURL, md, req.HTML)
	h.logger.Debug("detect request evaluated",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("original_url", req.OriginalURL),
		zap.Bool("login_redirect", result.IsLoginRedirect),
	)
	writeJSON(w, http.StatusOK, result)
}

// Rules handles GET /v1/rules, listing rules in resolution order.
func (h *DetectHandler) Rules(w http.ResponseWriter, _ *http.Request) {
	rules := h.detector.Registry().Rules()
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

type ruleDTO struct {
	ID              string      `json:"id"`
	SiteName        string      `json:"site_name"`
	Mode            string      `json:"mode"`
	ThresholdWeight int         `json:"threshold_weight,omitempty"`
	Signals         []signalDTO `json:"signals"`
}

type signalDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

func toRuleDTO(rule loginwall.Rule) ruleDTO {
	dto := ruleDTO{
		ID:              rule.ID,
		SiteName:        rule.SiteName,
		Mode:            rule.Mode.String(),
		ThresholdWeight: rule.ThresholdWeight,
		Signals:         make([]signalDTO, 0, len(rule.Signals)),
	}
	for _, sig := range rule.Signals {
		weight := sig.Weight
		if weight <= 0 {
			weight = 1
		}
		dto.Signals = append(dto.Signals, signalDTO{
			ID:          sig.ID,
			Description: sig.Description,
			Weight:      weight,
		})
	}
	return dto
}
