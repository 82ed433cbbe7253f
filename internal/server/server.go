package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/finance-formula/internal/catalog"
	"github.com/iwvelando/finance-formula/internal/config"
	"github.com/iwvelando/finance-formula/internal/telemetry"
	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/iwvelando/finance-formula/pkg/formula"
	"github.com/iwvelando/finance-formula/pkg/references"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type handler struct {
	logger           *zap.Logger
	engine           *formula.Engine
	catalog          *catalog.Store
	recorder         *telemetry.Recorder
	maxBodySize      int64
	batchConcurrency int
	placeholderValue float64
	version          string
}

// Options configures the HTTP handler. Zero values select defaults.
type Options struct {
	Engine           *formula.Engine
	Catalog          *catalog.Store
	Recorder         *telemetry.Recorder
	MaxBodySize      int64
	BatchConcurrency int
	PlaceholderValue float64
	Version          string
}

// NewHandler constructs the HTTP handler that serves the formula API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{
		logger:           logger,
		engine:           opts.Engine,
		catalog:          opts.Catalog,
		recorder:         opts.Recorder,
		maxBodySize:      opts.MaxBodySize,
		batchConcurrency: opts.BatchConcurrency,
		placeholderValue: opts.PlaceholderValue,
		version:          strings.TrimSpace(opts.Version),
	}
	if h.engine == nil {
		h.engine = formula.NewEngine(formula.WithMaxLength(constants.DefaultMaxFormulaLength))
	}
	if h.catalog == nil {
		h.catalog = catalog.NewStore(catalog.New(logger, config.CatalogConfig{}, h.engine))
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = constants.DefaultMaxBodySizeBytes
	}
	if h.batchConcurrency <= 0 {
		h.batchConcurrency = constants.DefaultBatchConcurrency
	}
	if h.placeholderValue == 0 {
		h.placeholderValue = constants.DefaultPlaceholderValue
	}
	if h.version == "" {
		h.version = "dev"
	}

	mux := http.NewServeMux()

	// Authoritative validation against caller-supplied variables
	mux.HandleFunc(constants.PathValidate, h.handleValidate)
	mux.HandleFunc(constants.PathValidateBatch, h.handleValidateBatch)

	// Syntax-only check used while a formula is edited
	mux.HandleFunc(constants.PathCheck, h.handleCheck)

	// Evaluation against the configured catalog
	mux.HandleFunc(constants.PathResolve, h.handleResolve)
	mux.HandleFunc(constants.PathCatalog, h.handleCatalog)

	mux.HandleFunc(constants.PathVersion, h.handleVersion)

	return h.logRequests(mux)
}

type validateRequest struct {
	Formula   *string           `json:"formula"`
	Variables *requestVariables `json:"variables"`
}

// requestVariables keeps null values distinguishable from zero.
type requestVariables map[string]*float64

// toVariables rejects null values, naming the first one in sorted order.
func (rv requestVariables) toVariables() (formula.Variables, error) {
	names := make([]string, 0, len(rv))
	for name := range rv {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make(formula.Variables, len(rv))
	for _, name := range names {
		value := rv[name]
		if value == nil {
			return nil, fmt.Errorf("variable '%s' must be a number, got null", name)
		}
		vars[name] = *value
	}
	return vars, nil
}

type errorMessage struct {
	Message string `json:"message"`
}

type validateResponse struct {
	IsValid bool          `json:"isValid"`
	Result  *float64      `json:"result,omitempty"`
	Error   *errorMessage `json:"error,omitempty"`
}

func newValidateResponse(res formula.ValidationResult) validateResponse {
	resp := validateResponse{IsValid: res.IsValid, Result: res.Value}
	if res.Error != nil {
		resp.Error = &errorMessage{Message: res.Error.Message}
	}
	return resp
}

type checkRequest struct {
	Formula *string `json:"formula"`
	DryRun  bool    `json:"dryRun"`
}

type checkResponse struct {
	formula.ValidationResult
	References []references.Reference `json:"references"`
}

type batchItem struct {
	ID        string            `json:"id"`
	Formula   *string           `json:"formula"`
	Variables *requestVariables `json:"variables"`

	vars formula.Variables
}

type batchRequest struct {
	Items []batchItem `json:"items"`
}

type batchResult struct {
	ID string `json:"id"`
	validateResponse
}

type batchResponse struct {
	Results []batchResult `json:"results"`
}

type resolveRequest struct {
	Formula *string `json:"formula"`
}

type resolveResponse struct {
	validateResponse
	References []references.Reference `json:"references"`
	Missing    []string               `json:"missing,omitempty"`
}

type catalogResponse struct {
	Entities   []catalog.Entry `json:"entities"`
	References []string        `json:"references"`
}

func (h *handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValidate"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req validateRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if req.Formula == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing required field 'formula'", op)
		return
	}
	if req.Variables == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing required field 'variables'", op)
		return
	}
	vars, err := req.Variables.toVariables()
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	res := h.recorder.Observe(r.Context(), "validate", func() formula.ValidationResult {
		return h.engine.Validate(*req.Formula, vars)
	})
	h.writeJSON(w, http.StatusOK, newValidateResponse(res))
}

func (h *handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCheck"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req checkRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if req.Formula == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing required field 'formula'", op)
		return
	}

	source := *req.Formula
	res := h.recorder.Observe(r.Context(), "check", func() formula.ValidationResult {
		if req.DryRun {
			return h.engine.Validate(source, references.Placeholders(source, h.placeholderValue))
		}
		return h.engine.Check(source)
	})

	refs := references.Extract(source)
	if refs == nil {
		refs = []references.Reference{}
	}
	h.writeJSON(w, http.StatusOK, checkResponse{ValidationResult: res, References: refs})
}

func (h *handler) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValidateBatch"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req batchRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if req.Items == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing required field 'items'", op)
		return
	}
	if len(req.Items) > constants.MaxBatchSize {
		h.respondErrorWithOp(w, http.StatusBadRequest,
			fmt.Sprintf("batch of %d items exceeds limit of %d", len(req.Items), constants.MaxBatchSize), op)
		return
	}
	for i := range req.Items {
		item := &req.Items[i]
		if item.Formula == nil || item.Variables == nil {
			h.respondErrorWithOp(w, http.StatusBadRequest,
				fmt.Sprintf("item %d is missing required field 'formula' or 'variables'", i), op)
			return
		}
		vars, err := item.Variables.toVariables()
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("item %d: %v", i, err), op)
			return
		}
		item.vars = vars
	}

	results, err := h.validateBatch(r.Context(), req.Items)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "batch validation cancelled", op)
		return
	}

	h.logger.Debug("batch validated",
		zap.String("op", op),
		zap.Int("items", len(results)),
	)
	h.writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

// validateBatch validates items concurrently and returns results in request
// order. It only fails when ctx is cancelled.
func (h *handler) validateBatch(ctx context.Context, items []batchItem) ([]batchResult, error) {
	results := make([]batchResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.batchConcurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := h.recorder.Observe(ctx, "validate", func() formula.ValidationResult {
				return h.engine.Validate(*item.Formula, item.vars)
			})
			results[i] = batchResult{ID: item.ID, validateResponse: newValidateResponse(res)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleResolve"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req resolveRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if req.Formula == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing required field 'formula'", op)
		return
	}

	var resolution catalog.Resolution
	h.recorder.Observe(r.Context(), "resolve", func() formula.ValidationResult {
		resolution = h.catalog.Load().Resolve(*req.Formula)
		return resolution.Result
	})

	refs := resolution.References
	if refs == nil {
		refs = []references.Reference{}
	}
	h.writeJSON(w, http.StatusOK, resolveResponse{
		validateResponse: newValidateResponse(resolution.Result),
		References:       refs,
		Missing:          resolution.Missing,
	})
}

func (h *handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	current := h.catalog.Load()
	entries := current.Entries()
	if entries == nil {
		entries = []catalog.Entry{}
	}
	h.writeJSON(w, http.StatusOK, catalogResponse{Entities: entries, References: current.References()})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return false
	}
	return true
}

var errTrailingData = errors.New("unexpected data after JSON object")

// decodeJSON reads a single JSON object from the request body into dst,
// responding with 413 or 400 when that is not possible.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err == nil {
		if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
			err = errTrailingData
		}
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
		case errors.Is(err, io.EOF):
			h.respondErrorWithOp(w, http.StatusBadRequest, "request body is empty", op)
		default:
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		}
		return false
	}
	return true
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Warn("formula request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes payload before writing the status, so an encoding
// failure is still reported as a 500.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		h.logger.Error("failed to write JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.logger.Info("request handled",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
