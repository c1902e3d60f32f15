package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docverity/docverity/internal/core/domain"
	"github.com/docverity/docverity/internal/core/ports"
	"github.com/docverity/docverity/internal/observability/metrics"
)

const (
	maxUploadBytes   = 32 << 20
	backpressureWait = 2 * time.Second
)

var errNoImage = errors.New("image_url is required")

type Options struct {
	Metrics *metrics.HTTPServerMetrics

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	identifyUC ports.DocumentIdentifier
	submitUC   ports.VerificationSubmitter
	reader     ports.VerificationReader
	opts       Options
}

func NewRouter(
	identifyUC ports.DocumentIdentifier,
	submitUC ports.VerificationSubmitter,
	reader ports.VerificationReader,
	opts Options,
) *Router {
	return &Router{
		identifyUC: identifyUC,
		submitUC:   submitUC,
		reader:     reader,
		opts:       opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/identify", rt.identify)
	mux.HandleFunc("/v1/verifications", rt.submitVerification)
	mux.HandleFunc("/v1/verifications/", rt.getVerificationByID)
	if rt.opts.Metrics != nil {
		mux.Handle("/metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// identify runs the engine synchronously and returns the decision in the
// response body.
func (rt *Router) identify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ref, claim, err := parseIdentifyRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	result, err := rt.identifyUC.Identify(r.Context(), ref, claim)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordDecision("api", string(result.DocType[0]), result.IsValid, result.Confidence, time.Since(start))
	}
	writeJSON(w, http.StatusOK, result)
}

// submitVerification records the check and returns immediately; a worker
// picks it up from the queue.
func (rt *Router) submitVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ref, claim, err := parseIdentifyRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	v, err := rt.submitUC.Submit(r.Context(), ref, claim)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

func (rt *Router) getVerificationByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/verifications/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "verification id is required"})
		return
	}

	v, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type claimPayload struct {
	FullName string `json:"full_name"`
	IDNumber string `json:"id_number"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (c claimPayload) toDomain() domain.IdentityClaim {
	return domain.IdentityClaim{
		FullName: strings.TrimSpace(c.FullName),
		IDNumber: strings.TrimSpace(c.IDNumber),
		Email:    strings.TrimSpace(c.Email),
		Phone:    strings.TrimSpace(c.Phone),
	}
}

// parseIdentifyRequest accepts either a JSON body with an image URL or a
// multipart upload with the raw image, each with an optional claim.
func parseIdentifyRequest(r *http.Request) (domain.ImageRef, domain.IdentityClaim, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return domain.ImageRef{}, domain.IdentityClaim{}, domain.WrapError(domain.ErrInvalidInput, "parse multipart", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return domain.ImageRef{}, domain.IdentityClaim{}, domain.WrapError(domain.ErrInvalidInput, "multipart field 'image'", err)
		}
		defer file.Close()

		raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return domain.ImageRef{}, domain.IdentityClaim{}, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
		}

		claim := claimPayload{
			FullName: r.FormValue("full_name"),
			IDNumber: r.FormValue("id_number"),
			Email:    r.FormValue("email"),
			Phone:    r.FormValue("phone"),
		}
		return domain.RefBytes(raw), claim.toDomain(), nil
	}

	var req struct {
		ImageURL string       `json:"image_url"`
		Claim    claimPayload `json:"claim"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		return domain.ImageRef{}, domain.IdentityClaim{}, domain.WrapError(domain.ErrInvalidInput, "decode json", err)
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return domain.ImageRef{}, domain.IdentityClaim{}, domain.WrapError(domain.ErrInvalidInput, "validate request", errNoImage)
	}
	return domain.RefURL(strings.TrimSpace(req.ImageURL)), req.Claim.toDomain(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
